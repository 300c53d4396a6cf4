package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Campaign statuses. A campaign is created in draft, claimed as sending for
// the duration of one dispatch, and ends in sent. Sent is terminal.
const (
	CampaignDraft   = "draft"
	CampaignSending = "sending"
	CampaignSent    = "sent"
)

var (
	// ErrAlreadySent is returned when a send is requested for a campaign
	// that is no longer in draft.
	ErrAlreadySent = errors.New("campaign already sent")

	// ErrCampaignLocked is returned when a sent campaign is edited or deleted.
	ErrCampaignLocked = errors.New("campaign is locked")
)

// Campaign represents a newsletter campaign
type Campaign struct {
	gorm.Model
	Subject     string `gorm:"not null" json:"subject"`
	ContentHTML string `gorm:"type:text" json:"content_html"`

	Status string     `gorm:"default:'draft';index" json:"status"`
	SentAt *time.Time `json:"sent_at,omitempty"`

	// Report is written once, when the campaign transitions to sent.
	Report *DeliveryReport `gorm:"type:jsonb;serializer:json" json:"report,omitempty"`
}

// Editable reports whether subject/content may still change.
func (c *Campaign) Editable() bool {
	return c.Status == CampaignDraft
}

// DeliveryReport is the aggregate outcome of a single send attempt.
type DeliveryReport struct {
	CampaignID        uint              `json:"campaign_id"`
	Requested         int               `json:"requested"`
	Sent              int               `json:"sent"`
	Failed            int               `json:"failed"`
	SkippedDuplicates int               `json:"skipped_duplicates"`
	Failures          []DeliveryFailure `json:"failures,omitempty"`
}

// DeliveryFailure records one recipient the transport could not deliver to.
type DeliveryFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}
