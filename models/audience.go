package models

import (
	"errors"
	"strings"
)

// Audience modes
const (
	AudienceSegment = "segment"
	AudienceCustom  = "custom"
)

var (
	// ErrEmptyAudience is returned when an audience resolves to zero recipients.
	ErrEmptyAudience = errors.New("audience resolved to zero recipients")

	// ErrUnknownSegment is returned when segment_status is not a valid
	// subscriber status.
	ErrUnknownSegment = errors.New("unknown segment status")

	// ErrInvalidEmail is returned when a free-form address fails the shape
	// check, at input time or at resolution time.
	ErrInvalidEmail = errors.New("invalid email address")
)

// AudienceSpec describes who a campaign should be sent to. It is built in the
// admin UI and submitted with the send request; it is never persisted on its
// own. In segment mode the audience is every subscriber with SegmentStatus;
// in custom mode it is the explicit SubscriberIDs plus ExtraEmails.
type AudienceSpec struct {
	Mode          string   `json:"mode" validate:"required,oneof=segment custom"`
	SegmentStatus string   `json:"status,omitempty"`
	SubscriberIDs []uint   `json:"subscriber_ids,omitempty"`
	ExtraEmails   []string `json:"extra_emails,omitempty"`
}

// Recipient is one resolved delivery target. SubscriberID is nil for entries
// that came only from extra_emails.
type Recipient struct {
	Email        string `json:"email"`
	SubscriberID *uint  `json:"subscriber_id,omitempty"`
	Name         string `json:"name,omitempty"`
}

// NormalizeEmail applies the canonical form used for all duplicate checks:
// trimmed and lowercased.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
