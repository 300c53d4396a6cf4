package utils

import (
	"errors"
	"fmt"
	"sort"

	"campuscms/models"
)

var (
	// ErrNoRecipients signals a segment selection whose directory count is
	// zero; the selection is ignored.
	ErrNoRecipients = errors.New("selected segment has no recipients")

	// ErrDuplicateEmail signals an extra email that is already selected,
	// either as an extra or as a chosen subscriber's address.
	ErrDuplicateEmail = errors.New("email already selected")
)

// SpecBuilder accumulates an audience selection for one operator session and
// keeps the live recipient total consistent while the selection changes.
// Switching modes keeps the other mode's selections; they just stop counting.
// It is not safe for concurrent use; each session owns one builder.
type SpecBuilder struct {
	mode    string
	segment string
	counts  models.SubscriberCounts

	// Selection state is an id set plus a side lookup of the subscribers
	// fetched for it, so duplicate guards can compare emails.
	selected map[uint]models.Subscriber
	extras   map[string]struct{}
}

func NewSpecBuilder(counts models.SubscriberCounts) *SpecBuilder {
	return &SpecBuilder{
		mode:     models.AudienceSegment,
		segment:  models.SubscriberActive,
		counts:   counts,
		selected: make(map[uint]models.Subscriber),
		extras:   make(map[string]struct{}),
	}
}

// SetMode switches between segment and custom. Unknown modes are rejected.
func (b *SpecBuilder) SetMode(mode string) error {
	if mode != models.AudienceSegment && mode != models.AudienceCustom {
		return fmt.Errorf("unknown audience mode %q", mode)
	}
	b.mode = mode
	return nil
}

// SetSegment selects a single status segment. A status with a zero count is
// ignored and reported so the UI can signal "no recipients".
func (b *SpecBuilder) SetSegment(status string) error {
	if !models.ValidSubscriberStatus(status) {
		return models.ErrUnknownSegment
	}
	if b.counts.ByStatus(status) == 0 {
		return ErrNoRecipients
	}
	b.segment = status
	return nil
}

// ToggleSubscriber adds the subscriber if absent and removes it if present.
// Toggling twice restores the original state.
func (b *SpecBuilder) ToggleSubscriber(sub models.Subscriber) {
	if _, ok := b.selected[sub.ID]; ok {
		delete(b.selected, sub.ID)
		return
	}
	b.selected[sub.ID] = sub
}

// AddExtraEmail normalizes and records a free-form address. It rejects empty
// or malformed input, duplicates among the extras, and addresses that already
// belong to a selected subscriber (the cross-source guard runs at input time,
// not only at resolution time).
func (b *SpecBuilder) AddExtraEmail(raw string) error {
	email := models.NormalizeEmail(raw)
	if email == "" {
		return fmt.Errorf("%w: empty", models.ErrInvalidEmail)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q", models.ErrInvalidEmail, raw)
	}
	if _, ok := b.extras[email]; ok {
		return ErrDuplicateEmail
	}
	for _, sub := range b.selected {
		if models.NormalizeEmail(sub.Email) == email {
			return ErrDuplicateEmail
		}
	}
	b.extras[email] = struct{}{}
	return nil
}

func (b *SpecBuilder) RemoveExtraEmail(email string) {
	delete(b.extras, models.NormalizeEmail(email))
}

func (b *SpecBuilder) RemoveSubscriber(id uint) {
	delete(b.selected, id)
}

func (b *SpecBuilder) Mode() string { return b.mode }

// TotalRecipients is the live total for the current mode. Custom selections
// are duplicate-free by construction, so the sum of the two sets is exact.
func (b *SpecBuilder) TotalRecipients() int64 {
	if b.mode == models.AudienceSegment {
		return b.counts.ByStatus(b.segment)
	}
	return int64(len(b.selected) + len(b.extras))
}

// Spec snapshots the builder into the transient request payload.
func (b *SpecBuilder) Spec() models.AudienceSpec {
	spec := models.AudienceSpec{Mode: b.mode}
	if b.mode == models.AudienceSegment {
		spec.SegmentStatus = b.segment
		return spec
	}

	ids := make([]uint, 0, len(b.selected))
	for id := range b.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	emails := make([]string, 0, len(b.extras))
	for email := range b.extras {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	spec.SubscriberIDs = ids
	spec.ExtraEmails = emails
	return spec
}
