package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender delivers one text message. Implementations may fail on provider
// errors; no retry is built in.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioSender sends SMS through the Twilio messaging API.
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioSender(accountSid, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	normalized, err := NormalizePhone(to)
	if err != nil {
		return fmt.Errorf("invalid recipient number: %w", err)
	}

	params := &api.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(t.fromNumber)
	params.SetTo(normalized)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", normalized, err)
	}
	return nil
}
