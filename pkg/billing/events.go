package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType is a webhook event type recognized by the entitlement engine.
// Anything else in the envelope's type field is acknowledged and ignored.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment.succeeded"
	EventMembershipActivated   EventType = "membership.activated"
	EventMembershipDeactivated EventType = "membership.deactivated"
)

// MetadataTypeSubscription marks a checkout (and the events it produces) as
// belonging to the recurring subscription flow rather than a book purchase.
const MetadataTypeSubscription = "subscription"

// Envelope is the outer webhook payload. Data stays raw until the event is
// classified, so unrecognized types cost nothing to ignore.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEnvelope decodes the raw webhook body into an Envelope.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Join(ErrInvalidEnvelope, err)
	}
	if env.Type == "" {
		return nil, errors.Join(ErrInvalidEnvelope, errors.New("missing type field"))
	}
	return &env, nil
}

// EventType reports the recognized event type, or false for anything the
// engine does not process.
func (e *Envelope) EventType() (EventType, bool) {
	switch EventType(e.Type) {
	case EventPaymentSucceeded, EventMembershipActivated, EventMembershipDeactivated:
		return EventType(e.Type), true
	}
	return "", false
}

// Metadata is the custom data attached at checkout-configuration time and
// echoed back on webhook events. It is the only correlation channel between
// a checkout and its outcome events.
type Metadata struct {
	Type      string `json:"type,omitempty"`
	BookID    string `json:"bookId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

// PaymentEvent is the data payload of a payment.succeeded event.
type PaymentEvent struct {
	ID       string      `json:"id"`
	Total    json.Number `json:"total"`
	Currency string      `json:"currency"`
	Metadata Metadata    `json:"metadata"`
}

// ParsePaymentEvent decodes the data portion of a payment.succeeded envelope.
func ParsePaymentEvent(data json.RawMessage) (*PaymentEvent, error) {
	var ev PaymentEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Join(ErrInvalidEventData, err)
	}
	return &ev, nil
}

// IsSubscriptionPayment reports whether this payment is the counterpart of a
// subscription charge. Those are owned by the membership.activated flow and
// must never create access grants.
func (e *PaymentEvent) IsSubscriptionPayment() bool {
	return e.Metadata.Type == MetadataTypeSubscription
}

// TotalMinorUnits converts the event's decimal total into minor currency
// units (cents for USD). The provider sends totals as decimal numbers with at
// most two fractional digits.
func (e *PaymentEvent) TotalMinorUnits() (int64, error) {
	return ParseMinorUnits(e.Total.String())
}

// MembershipEvent is the data payload of membership.activated and
// membership.deactivated events.
type MembershipEvent struct {
	ID                 string     `json:"id"`
	Company            CompanyRef `json:"company"`
	Plan               PlanRef    `json:"plan"`
	Metadata           Metadata   `json:"metadata"`
	RenewalPeriodStart *time.Time `json:"renewal_period_start"`
	RenewalPeriodEnd   *time.Time `json:"renewal_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CreatedAt          *time.Time `json:"created_at"`
}

// CompanyRef is the nested company reference on membership events.
type CompanyRef struct {
	ID string `json:"id"`
}

// PlanRef is the nested plan reference on membership events.
type PlanRef struct {
	ID string `json:"id"`
}

// ParseMembershipEvent decodes the data portion of a membership envelope.
func ParseMembershipEvent(data json.RawMessage) (*MembershipEvent, error) {
	var ev MembershipEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Join(ErrInvalidEventData, err)
	}
	return &ev, nil
}

// IsSubscription reports whether the membership belongs to the subscription
// flow. Absent metadata counts as a subscription: only book purchases set an
// explicit non-subscription type.
func (e *MembershipEvent) IsSubscription() bool {
	return e.Metadata.Type == "" || e.Metadata.Type == MetadataTypeSubscription
}

// ParseMinorUnits parses a decimal amount string ("5", "5.9", "5.00") into
// minor currency units. Amounts with more than two fractional digits are
// rejected rather than silently truncated.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, errors.Join(ErrInvalidAmount, fmt.Errorf("too many fractional digits in %q", s))
	}
	// 16 whole digits keep the minor-unit total within int64; anything
	// larger would wrap during accumulation.
	if len(whole) > 16 {
		return 0, errors.Join(ErrInvalidAmount, fmt.Errorf("amount %q out of range", s))
	}
	// Pad to exactly two fractional digits so "5.9" means 590, not 59.
	frac += strings.Repeat("0", 2-len(frac))

	var units int64
	for _, digits := range []string{whole, frac} {
		for _, c := range digits {
			if c < '0' || c > '9' {
				return 0, errors.Join(ErrInvalidAmount, fmt.Errorf("invalid amount %q", s))
			}
			units = units*10 + int64(c-'0')
		}
	}
	if whole == "" {
		return 0, errors.Join(ErrInvalidAmount, fmt.Errorf("invalid amount %q", s))
	}

	if neg {
		units = -units
	}
	return units, nil
}
