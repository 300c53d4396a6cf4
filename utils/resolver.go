package utils

import (
	"context"
	"fmt"
	"regexp"

	"campuscms/models"
)

// emailPattern is the minimal shape accepted for free-form addresses.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmailShape reports whether raw looks like an email address after
// normalization.
func ValidEmailShape(raw string) bool {
	return emailPattern.MatchString(models.NormalizeEmail(raw))
}

// SubscriberDirectory is the read-only view of the subscriber store used for
// audience resolution and the admin picker. Resolution never writes to it.
type SubscriberDirectory interface {
	Counts(ctx context.Context) (models.SubscriberCounts, error)
	FindByStatus(ctx context.Context, status string) ([]models.Subscriber, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Subscriber, error)
	Search(ctx context.Context, q, status string, page, limit int) ([]models.Subscriber, int64, error)
}

// AudienceResolver expands an AudienceSpec into the definitive recipient list
// at send time. The UI's count is advisory; this re-derives everything from
// the directory so a stale client selection cannot leak into a send.
type AudienceResolver struct {
	Directory SubscriberDirectory
}

// Resolve returns the deduplicated recipients and the number of duplicates
// dropped. It fails with models.ErrUnknownSegment for a bad segment status
// and models.ErrEmptyAudience when nothing is left to send to.
func (r *AudienceResolver) Resolve(ctx context.Context, spec models.AudienceSpec) ([]models.Recipient, int, error) {
	var candidates []models.Recipient

	switch spec.Mode {
	case models.AudienceSegment:
		if !models.ValidSubscriberStatus(spec.SegmentStatus) {
			return nil, 0, models.ErrUnknownSegment
		}
		subs, err := r.Directory.FindByStatus(ctx, spec.SegmentStatus)
		if err != nil {
			return nil, 0, fmt.Errorf("segment lookup failed: %w", err)
		}
		for _, sub := range subs {
			candidates = append(candidates, subscriberRecipient(sub))
		}

	case models.AudienceCustom:
		// Ids that no longer exist are dropped silently: subscribers may be
		// deleted between selection and send.
		subs, err := r.Directory.FindByIDs(ctx, spec.SubscriberIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("subscriber lookup failed: %w", err)
		}
		for _, sub := range subs {
			candidates = append(candidates, subscriberRecipient(sub))
		}
		for _, raw := range spec.ExtraEmails {
			email := models.NormalizeEmail(raw)
			if !emailPattern.MatchString(email) {
				return nil, 0, fmt.Errorf("%w: %q", models.ErrInvalidEmail, raw)
			}
			candidates = append(candidates, models.Recipient{Email: email})
		}

	default:
		return nil, 0, fmt.Errorf("unknown audience mode %q", spec.Mode)
	}

	recipients, skipped := dedupeRecipients(candidates)
	if len(recipients) == 0 {
		return nil, 0, models.ErrEmptyAudience
	}
	return recipients, skipped, nil
}

func subscriberRecipient(sub models.Subscriber) models.Recipient {
	id := sub.ID
	return models.Recipient{
		Email:        models.NormalizeEmail(sub.Email),
		SubscriberID: &id,
		Name:         sub.Name,
	}
}

// dedupeRecipients collapses candidates sharing a lowercased email. An entry
// carrying a subscriber id wins over one without; otherwise first in wins.
func dedupeRecipients(candidates []models.Recipient) ([]models.Recipient, int) {
	var out []models.Recipient
	index := make(map[string]int, len(candidates))
	skipped := 0

	for _, cand := range candidates {
		at, seen := index[cand.Email]
		if !seen {
			index[cand.Email] = len(out)
			out = append(out, cand)
			continue
		}
		if out[at].SubscriberID == nil && cand.SubscriberID != nil {
			out[at] = cand
		}
		skipped++
	}
	return out, skipped
}
