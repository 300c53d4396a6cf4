package models

import (
	"gorm.io/gorm"
)

// Subscriber statuses
const (
	SubscriberActive       = "active"
	SubscriberPending      = "pending"
	SubscriberUnsubscribed = "unsubscribed"
)

// ValidSubscriberStatus reports whether s is one of the three known statuses.
func ValidSubscriberStatus(s string) bool {
	switch s {
	case SubscriberActive, SubscriberPending, SubscriberUnsubscribed:
		return true
	}
	return false
}

// Subscriber is a newsletter recipient in the directory. Emails are stored
// lowercased and compared case-insensitively.
type Subscriber struct {
	gorm.Model
	Email  string `gorm:"not null;uniqueIndex" json:"email"`
	Name   string `json:"name"`
	Status string `gorm:"not null;default:'pending';index" json:"status"`
}

// SubscriberCounts holds the per-status totals shown in the audience picker.
type SubscriberCounts struct {
	Active       int64 `json:"active"`
	Pending      int64 `json:"pending"`
	Unsubscribed int64 `json:"unsubscribed"`
	Total        int64 `json:"total"`
}

// ByStatus returns the count for a single status, 0 for unknown values.
func (sc SubscriberCounts) ByStatus(status string) int64 {
	switch status {
	case SubscriberActive:
		return sc.Active
	case SubscriberPending:
		return sc.Pending
	case SubscriberUnsubscribed:
		return sc.Unsubscribed
	}
	return 0
}
