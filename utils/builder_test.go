package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuscms/models"
)

func testCounts() models.SubscriberCounts {
	return models.SubscriberCounts{Active: 120, Pending: 15, Unsubscribed: 8, Total: 143}
}

func TestBuilderDefaultsToActiveSegment(t *testing.T) {
	b := NewSpecBuilder(testCounts())

	assert.Equal(t, models.AudienceSegment, b.Mode())
	assert.Equal(t, int64(120), b.TotalRecipients())

	spec := b.Spec()
	assert.Equal(t, models.AudienceSegment, spec.Mode)
	assert.Equal(t, models.SubscriberActive, spec.SegmentStatus)
	assert.Empty(t, spec.SubscriberIDs)
	assert.Empty(t, spec.ExtraEmails)
}

func TestBuilderSetSegment(t *testing.T) {
	b := NewSpecBuilder(testCounts())

	require.NoError(t, b.SetSegment(models.SubscriberPending))
	assert.Equal(t, int64(15), b.TotalRecipients())

	assert.ErrorIs(t, b.SetSegment("vip"), models.ErrUnknownSegment)
	assert.Equal(t, int64(15), b.TotalRecipients())
}

func TestBuilderSetSegmentEmpty(t *testing.T) {
	b := NewSpecBuilder(models.SubscriberCounts{Active: 3, Total: 3})

	// A zero-count segment is rejected and the previous selection stays.
	assert.ErrorIs(t, b.SetSegment(models.SubscriberUnsubscribed), ErrNoRecipients)
	assert.Equal(t, int64(3), b.TotalRecipients())
	assert.Equal(t, models.SubscriberActive, b.Spec().SegmentStatus)
}

func TestBuilderToggleSubscriberIdempotent(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	sub := testSubscriber(4, "dave@uni.edu", models.SubscriberActive)

	b.ToggleSubscriber(sub)
	assert.Equal(t, int64(1), b.TotalRecipients())

	b.ToggleSubscriber(sub)
	assert.Equal(t, int64(0), b.TotalRecipients())

	b.ToggleSubscriber(sub)
	b.ToggleSubscriber(sub)
	assert.Equal(t, int64(0), b.TotalRecipients())
	assert.Empty(t, b.Spec().SubscriberIDs)
}

func TestBuilderAddExtraEmail(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	require.NoError(t, b.AddExtraEmail("  Guest@Example.COM "))
	assert.Equal(t, int64(1), b.TotalRecipients())
	assert.Equal(t, []string{"guest@example.com"}, b.Spec().ExtraEmails)

	// Same address again, in a different case, is a duplicate.
	assert.ErrorIs(t, b.AddExtraEmail("GUEST@example.com"), ErrDuplicateEmail)
	assert.Equal(t, int64(1), b.TotalRecipients())

	assert.ErrorIs(t, b.AddExtraEmail(""), models.ErrInvalidEmail)
	assert.ErrorIs(t, b.AddExtraEmail("not an email"), models.ErrInvalidEmail)
	assert.Equal(t, int64(1), b.TotalRecipients())
}

func TestBuilderCrossSourceDuplicateGuard(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	b.ToggleSubscriber(testSubscriber(9, "Prof@Uni.EDU", models.SubscriberActive))

	// Adding the selected subscriber's address as an extra is rejected at
	// input time, so the total never double counts.
	assert.ErrorIs(t, b.AddExtraEmail("prof@uni.edu"), ErrDuplicateEmail)
	assert.Equal(t, int64(1), b.TotalRecipients())

	// After removing the subscriber the address becomes available again.
	b.RemoveSubscriber(9)
	require.NoError(t, b.AddExtraEmail("prof@uni.edu"))
	assert.Equal(t, int64(1), b.TotalRecipients())
}

func TestBuilderModeSwitchPreservesSelections(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	b.ToggleSubscriber(testSubscriber(2, "bob@uni.edu", models.SubscriberActive))
	require.NoError(t, b.AddExtraEmail("guest@example.com"))
	assert.Equal(t, int64(2), b.TotalRecipients())

	// Switching to segment changes the total without discarding the custom
	// picks; switching back restores them.
	require.NoError(t, b.SetMode(models.AudienceSegment))
	assert.Equal(t, int64(120), b.TotalRecipients())

	require.NoError(t, b.SetMode(models.AudienceCustom))
	assert.Equal(t, int64(2), b.TotalRecipients())

	spec := b.Spec()
	assert.Equal(t, []uint{2}, spec.SubscriberIDs)
	assert.Equal(t, []string{"guest@example.com"}, spec.ExtraEmails)
}

func TestBuilderRejectsUnknownMode(t *testing.T) {
	b := NewSpecBuilder(testCounts())

	assert.Error(t, b.SetMode("broadcast"))
	assert.Equal(t, models.AudienceSegment, b.Mode())
}

func TestBuilderSpecSorted(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	b.ToggleSubscriber(testSubscriber(30, "c@uni.edu", models.SubscriberActive))
	b.ToggleSubscriber(testSubscriber(2, "b@uni.edu", models.SubscriberActive))
	b.ToggleSubscriber(testSubscriber(11, "a@uni.edu", models.SubscriberActive))
	require.NoError(t, b.AddExtraEmail("zoe@example.com"))
	require.NoError(t, b.AddExtraEmail("amy@example.com"))

	spec := b.Spec()
	assert.Equal(t, []uint{2, 11, 30}, spec.SubscriberIDs)
	assert.Equal(t, []string{"amy@example.com", "zoe@example.com"}, spec.ExtraEmails)
}

func TestBuilderTotalMatchesResolvedCount(t *testing.T) {
	// The builder's live total must equal what resolution produces for the
	// same selection, because the builder blocks duplicates at input time.
	dir := &fakeDirectory{subscribers: []models.Subscriber{
		testSubscriber(1, "alice@uni.edu", models.SubscriberActive),
		testSubscriber(2, "bob@uni.edu", models.SubscriberPending),
	}}

	b := NewSpecBuilder(models.SubscriberCounts{Active: 1, Pending: 1, Total: 2})
	require.NoError(t, b.SetMode(models.AudienceCustom))
	b.ToggleSubscriber(dir.subscribers[0])
	b.ToggleSubscriber(dir.subscribers[1])
	require.NoError(t, b.AddExtraEmail("guest@example.com"))
	assert.ErrorIs(t, b.AddExtraEmail("ALICE@uni.edu"), ErrDuplicateEmail)

	resolver := AudienceResolver{Directory: dir}
	recipients, skipped, err := resolver.Resolve(context.Background(), b.Spec())
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, b.TotalRecipients(), int64(len(recipients)))
}

func TestBuilderRemoveExtraEmail(t *testing.T) {
	b := NewSpecBuilder(testCounts())
	require.NoError(t, b.SetMode(models.AudienceCustom))

	require.NoError(t, b.AddExtraEmail("guest@example.com"))
	b.RemoveExtraEmail("GUEST@example.com")
	assert.Equal(t, int64(0), b.TotalRecipients())
}
