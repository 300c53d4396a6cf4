package models

import (
	"time"

	"gorm.io/gorm"
)

// InboxReply is an email pulled from the newsletter mailbox by the IMAP
// worker, surfaced to the operator for manual follow-up.
// MessageID is nullable: messages without a Message-Id header are stored
// without one, and the unique index only applies to non-null values.
type InboxReply struct {
	gorm.Model
	MessageID  *string   `gorm:"uniqueIndex" json:"message_id,omitempty"`
	FromEmail  string    `gorm:"index" json:"from_email"`
	FromName   string    `json:"from_name"`
	Subject    string    `json:"subject"`
	BodyText   string    `gorm:"type:text" json:"body_text"`
	BodyHTML   string    `gorm:"type:text" json:"body_html"`
	ReceivedAt time.Time `json:"received_at"`
	Seen       bool      `gorm:"default:false" json:"seen"`
}
