package utils

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"campuscms/models"
)

// fakeDirectory is an in-memory SubscriberDirectory for tests.
type fakeDirectory struct {
	subscribers []models.Subscriber

	mu          sync.Mutex
	searchCalls int
	searchHook  func(q string) // runs inside Search before returning
}

func (d *fakeDirectory) searchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.searchCalls
}

func (d *fakeDirectory) Counts(ctx context.Context) (models.SubscriberCounts, error) {
	var counts models.SubscriberCounts
	for _, sub := range d.subscribers {
		counts.Total++
		switch sub.Status {
		case models.SubscriberActive:
			counts.Active++
		case models.SubscriberPending:
			counts.Pending++
		case models.SubscriberUnsubscribed:
			counts.Unsubscribed++
		}
	}
	return counts, nil
}

func (d *fakeDirectory) FindByStatus(ctx context.Context, status string) ([]models.Subscriber, error) {
	var out []models.Subscriber
	for _, sub := range d.subscribers {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (d *fakeDirectory) FindByIDs(ctx context.Context, ids []uint) ([]models.Subscriber, error) {
	var out []models.Subscriber
	for _, id := range ids {
		for _, sub := range d.subscribers {
			if sub.ID == id {
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

func (d *fakeDirectory) Search(ctx context.Context, q, status string, page, limit int) ([]models.Subscriber, int64, error) {
	d.mu.Lock()
	d.searchCalls++
	hook := d.searchHook
	d.mu.Unlock()
	if hook != nil {
		hook(q)
	}
	var out []models.Subscriber
	for _, sub := range d.subscribers {
		if q == "" || sub.Email == q || sub.Name == q {
			out = append(out, sub)
		}
	}
	return out, int64(len(out)), nil
}

func testSubscriber(id uint, email, status string) models.Subscriber {
	return models.Subscriber{
		Model:  gorm.Model{ID: id},
		Email:  email,
		Status: status,
	}
}

func TestResolveSegment(t *testing.T) {
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "alice@uni.edu", models.SubscriberActive),
		testSubscriber(2, "bob@uni.edu", models.SubscriberActive),
		testSubscriber(3, "carol@uni.edu", models.SubscriberPending),
	}}
	resolver := AudienceResolver{Directory: dir}

	recipients, skipped, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceSegment,
		SegmentStatus: models.SubscriberActive,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, recipients, 2)
	assert.Equal(t, "alice@uni.edu", recipients[0].Email)
	require.NotNil(t, recipients[0].SubscriberID)
	assert.Equal(t, uint(1), *recipients[0].SubscriberID)
}

func TestResolveSegmentUnknownStatus(t *testing.T) {
	resolver := AudienceResolver{Directory: &fakeDirectory{}}

	_, _, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceSegment,
		SegmentStatus: "vip",
	})
	assert.ErrorIs(t, err, models.ErrUnknownSegment)
}

func TestResolveEmptySegment(t *testing.T) {
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "alice@uni.edu", models.SubscriberActive),
	}}
	resolver := AudienceResolver{Directory: dir}

	_, _, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceSegment,
		SegmentStatus: models.SubscriberUnsubscribed,
	})
	assert.ErrorIs(t, err, models.ErrEmptyAudience)
}

func TestResolveCustomCrossSourceDuplicate(t *testing.T) {
	// Subscriber 2's address also appears as an extra email; the resolved
	// list keeps one entry, attributed to the subscriber, and counts the
	// dropped duplicate.
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "alice@uni.edu", models.SubscriberActive),
		testSubscriber(2, "a@x.com", models.SubscriberActive),
	}}
	resolver := AudienceResolver{Directory: dir}

	recipients, skipped, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceCustom,
		SubscriberIDs: []uint{1, 2},
		ExtraEmails:   []string{"a@x.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, recipients, 2)

	byEmail := map[string]models.Recipient{}
	for _, r := range recipients {
		byEmail[r.Email] = r
	}
	require.Contains(t, byEmail, "a@x.com")
	require.NotNil(t, byEmail["a@x.com"].SubscriberID)
	assert.Equal(t, uint(2), *byEmail["a@x.com"].SubscriberID)
}

func TestResolveCustomSubscriberWinsOverEarlierExtra(t *testing.T) {
	// Even when the extra email would land first in candidate order, the
	// subscriber-backed entry takes over the slot.
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(7, "Dean@Uni.EDU", models.SubscriberActive),
	}}
	resolver := AudienceResolver{Directory: dir}

	recipients, skipped, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:        models.AudienceCustom,
		ExtraEmails: []string{"dean@uni.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, recipients, 1)
	assert.Nil(t, recipients[0].SubscriberID)

	recipients, skipped, err = resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceCustom,
		SubscriberIDs: []uint{7},
		ExtraEmails:   []string{"dean@uni.edu"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, recipients, 1)
	assert.Equal(t, "dean@uni.edu", recipients[0].Email)
	require.NotNil(t, recipients[0].SubscriberID)
	assert.Equal(t, uint(7), *recipients[0].SubscriberID)
}

func TestResolveCustomDropsMissingIDs(t *testing.T) {
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "alice@uni.edu", models.SubscriberActive),
	}}
	resolver := AudienceResolver{Directory: dir}

	recipients, skipped, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceCustom,
		SubscriberIDs: []uint{1, 99},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Len(t, recipients, 1)
}

func TestResolveCustomInvalidExtraEmail(t *testing.T) {
	resolver := AudienceResolver{Directory: &fakeDirectory{}}

	_, _, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:        models.AudienceCustom,
		ExtraEmails: []string{"not-an-email"},
	})
	assert.ErrorIs(t, err, models.ErrInvalidEmail)
	assert.False(t, errors.Is(err, models.ErrEmptyAudience))
}

func TestResolveCustomEmpty(t *testing.T) {
	resolver := AudienceResolver{Directory: &fakeDirectory{}}

	_, _, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode: models.AudienceCustom,
	})
	assert.ErrorIs(t, err, models.ErrEmptyAudience)
}

func TestResolveNormalizesCase(t *testing.T) {
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "Alice@Uni.EDU", models.SubscriberActive),
	}}
	resolver := AudienceResolver{Directory: dir}

	recipients, skipped, err := resolver.Resolve(context.Background(), models.AudienceSpec{
		Mode:          models.AudienceCustom,
		SubscriberIDs: []uint{1},
		ExtraEmails:   []string{"  ALICE@uni.edu  "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, recipients, 1)
	assert.Equal(t, "alice@uni.edu", recipients[0].Email)
}

func TestValidEmailShape(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"alice@uni.edu", true},
		{"  Alice@Uni.EDU ", true},
		{"a@x.com", true},
		{"", false},
		{"no-at-sign", false},
		{"two@@x.com", false},
		{"spaces in@x.com", false},
		{"missing@tld", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidEmailShape(tt.input), "input %q", tt.input)
	}
}
