package notify

// ChannelKind enumerates the resolved delivery media for a notification.
type ChannelKind string

const (
	KindEmail ChannelKind = "email"
	KindSMS   ChannelKind = "sms"
	KindBoth  ChannelKind = "both"
	KindNone  ChannelKind = "none"
)

// ChannelDecision is the resolved channel for one recipient, carrying the
// addresses the decision was made from.
type ChannelDecision struct {
	Kind  ChannelKind
	Email string
	Phone string
}

// DecideChannel resolves the delivery channel from the available contact
// fields. SMS is only considered when the SMS provider is enabled. KindNone
// means no send should be attempted at all.
func DecideChannel(email, phone string, smsEnabled bool) ChannelDecision {
	hasEmail := email != ""
	hasPhone := phone != "" && smsEnabled

	switch {
	case hasEmail && hasPhone:
		return ChannelDecision{Kind: KindBoth, Email: email, Phone: phone}
	case hasEmail:
		return ChannelDecision{Kind: KindEmail, Email: email}
	case hasPhone:
		return ChannelDecision{Kind: KindSMS, Phone: phone}
	default:
		return ChannelDecision{Kind: KindNone}
	}
}
