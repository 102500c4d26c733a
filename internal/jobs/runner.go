package jobs

import (
	"context"
	"fmt"

	"coursedesk/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantScope is the explicit per-iteration tenant context. It is constructed
// by the runner for one tenant at a time and passed down every call in that
// iteration; it must never be shared across goroutines that outlive the
// iteration.
type TenantScope struct {
	TenantID uuid.UUID
	Tenant   models.Tenant
}

// SweepSummary reports one pass over the active tenant set.
type SweepSummary struct {
	Tenants  int
	Failures int
}

// TenantRunner enumerates active tenants and invokes a tenant-scoped routine
// for each, strictly sequentially. One tenant's failure is logged with tenant
// correlation and never aborts the sweep.
type TenantRunner struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTenantRunner(db *gorm.DB, log *zap.Logger) *TenantRunner {
	return &TenantRunner{db: db, log: log}
}

func (r *TenantRunner) RunAcrossTenants(ctx context.Context, jobName string, fn func(context.Context, TenantScope) error) (SweepSummary, error) {
	var tenants []models.Tenant
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&tenants).Error; err != nil {
		return SweepSummary{}, fmt.Errorf("list active tenants: %w", err)
	}

	var summary SweepSummary
	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Tenants++
		scope := TenantScope{TenantID: tenant.ID, Tenant: tenant}
		if err := r.runTenant(ctx, scope, fn); err != nil {
			summary.Failures++
			r.log.Error("tenant routine failed",
				zap.String("job", jobName),
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err),
			)
		}
	}
	return summary, nil
}

func (r *TenantRunner) runTenant(ctx context.Context, scope TenantScope, fn func(context.Context, TenantScope) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in tenant routine: %v", rec)
		}
	}()
	return fn(ctx, scope)
}
