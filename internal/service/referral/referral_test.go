package referral

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store/storetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedSub(mem *storetest.Memory, userID int64) *subscriptions.Subscription {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return mem.SeedSubscription(subscriptions.Subscription{
		UserID:    userID,
		ServiceID: 1,
		StartedAt: now,
		ExpiresAt: now.AddDate(0, 0, 30),
		Active:    true,
	})
}

func TestMaybeAwardFirstSubscription(t *testing.T) {
	mem := storetest.New()
	referrer := mem.SeedUser("bob", 0, nil)
	referred := mem.SeedUser("alice", 0, &referrer.ID)
	sub := seedSub(mem, referred.ID)
	s := New(mem, 1, nil, testLogger())

	s.MaybeAward(context.Background(), referred.ID, sub.ID)

	assert.Equal(t, 1, mem.User(referrer.ID).Credits)
	credits := mem.ReferralCredits()
	require.Len(t, credits, 1)
	assert.Equal(t, referrer.ID, credits[0].ReferrerID)
	assert.Equal(t, referred.ID, credits[0].ReferredID)
}

func TestMaybeAwardIsOneShot(t *testing.T) {
	mem := storetest.New()
	referrer := mem.SeedUser("bob", 0, nil)
	referred := mem.SeedUser("alice", 0, &referrer.ID)
	sub := seedSub(mem, referred.ID)
	s := New(mem, 1, nil, testLogger())

	s.MaybeAward(context.Background(), referred.ID, sub.ID)
	s.MaybeAward(context.Background(), referred.ID, sub.ID)

	assert.Equal(t, 1, mem.User(referrer.ID).Credits)
	assert.Len(t, mem.ReferralCredits(), 1)
}

func TestMaybeAwardOnlyOnFirstEverSubscription(t *testing.T) {
	mem := storetest.New()
	referrer := mem.SeedUser("bob", 0, nil)
	referred := mem.SeedUser("alice", 0, &referrer.ID)
	seedSub(mem, referred.ID)
	second := seedSub(mem, referred.ID)
	s := New(mem, 1, nil, testLogger())

	s.MaybeAward(context.Background(), referred.ID, second.ID)

	assert.Equal(t, 0, mem.User(referrer.ID).Credits)
	assert.Empty(t, mem.ReferralCredits())
}

func TestMaybeAwardSkipsUnreferredUser(t *testing.T) {
	mem := storetest.New()
	user := mem.SeedUser("alice", 0, nil)
	sub := seedSub(mem, user.ID)
	s := New(mem, 1, nil, testLogger())

	s.MaybeAward(context.Background(), user.ID, sub.ID)

	assert.Empty(t, mem.ReferralCredits())
}

func TestMaybeAwardConfiguredCredits(t *testing.T) {
	mem := storetest.New()
	referrer := mem.SeedUser("bob", 5, nil)
	referred := mem.SeedUser("alice", 0, &referrer.ID)
	sub := seedSub(mem, referred.ID)
	s := New(mem, 3, nil, testLogger())

	s.MaybeAward(context.Background(), referred.ID, sub.ID)

	assert.Equal(t, 8, mem.User(referrer.ID).Credits)
	credits := mem.ReferralCredits()
	require.Len(t, credits, 1)
	assert.Equal(t, 3, credits[0].Credits)
}
