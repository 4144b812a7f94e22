package transcoding

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

func newTestSession(tier models.ProfileTier) *session {
	return &session{
		Token:     uuid.New(),
		ChannelID: models.NewULID(),
		Tier:      tier,
		StartedAt: time.Now(),
		events:    make(chan Event, 1),
		loopDone:  make(chan struct{}),
	}
}

func TestRegistry_AdmitAndRemove(t *testing.T) {
	r := NewRegistry()
	sess := newTestSession(models.TierCopy)

	require.NoError(t, r.Admit(sess, 2, false))
	assert.True(t, r.Has(sess.ChannelID))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.CountTier(models.TierCopy))

	// Wrong token must not remove the session.
	assert.False(t, r.Remove(sess.ChannelID, uuid.New()))
	assert.True(t, r.Has(sess.ChannelID))

	assert.True(t, r.Remove(sess.ChannelID, sess.Token))
	assert.False(t, r.Has(sess.ChannelID))
	assert.Equal(t, 0, r.Len())

	// Removing twice reports that nothing was owned.
	assert.False(t, r.Remove(sess.ChannelID, sess.Token))
}

func TestRegistry_AdmitRejectsSecondSession(t *testing.T) {
	r := NewRegistry()
	sess := newTestSession(models.TierCopy)
	require.NoError(t, r.Admit(sess, 5, false))

	dup := newTestSession(models.TierCopy)
	dup.ChannelID = sess.ChannelID
	err := r.Admit(dup, 5, false)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AdmitEnforcesTierLimit(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Admit(newTestSession(models.TierLow), 2, false))
	require.NoError(t, r.Admit(newTestSession(models.TierLow), 2, false))

	err := r.Admit(newTestSession(models.TierLow), 2, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	var exhausted *ResourceExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, models.TierLow, exhausted.Tier)
	assert.Equal(t, 2, exhausted.Current)
	assert.Equal(t, 2, exhausted.Max)

	// Other tiers are unaffected.
	require.NoError(t, r.Admit(newTestSession(models.TierHigh), 1, false))
}

func TestRegistry_AdmitZeroLimitDeniesEverything(t *testing.T) {
	r := NewRegistry()
	err := r.Admit(newTestSession(models.TierMedium), 0, false)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestRegistry_AdmitBypassIgnoresLimit(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 1, false))
	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 1, true))
	assert.Equal(t, 2, r.CountTier(models.TierCopy))

	// Bypass never overrides the one-session-per-channel rule.
	sess := newTestSession(models.TierCopy)
	require.NoError(t, r.Admit(sess, 1, true))
	dup := newTestSession(models.TierCopy)
	dup.ChannelID = sess.ChannelID
	assert.ErrorIs(t, r.Admit(dup, 1, true), ErrAlreadyRunning)
}

func TestRegistry_CountByTierIncludesEmptyTiers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 10, false))
	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 10, false))
	require.NoError(t, r.Admit(newTestSession(models.TierHigh), 10, false))

	counts := r.CountByTier()
	assert.Equal(t, 2, counts[models.TierCopy])
	assert.Equal(t, 0, counts[models.TierLow])
	assert.Equal(t, 0, counts[models.TierMedium])
	assert.Equal(t, 1, counts[models.TierHigh])
	assert.Len(t, counts, 4)
}

func TestRegistry_SnapshotOrderedByStartTime(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	third := newTestSession(models.TierCopy)
	third.StartedAt = base.Add(2 * time.Second)
	first := newTestSession(models.TierCopy)
	first.StartedAt = base
	second := newTestSession(models.TierCopy)
	second.StartedAt = base.Add(time.Second)

	require.NoError(t, r.Admit(third, 10, false))
	require.NoError(t, r.Admit(first, 10, false))
	require.NoError(t, r.Admit(second, 10, false))

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, first.ChannelID, snap[0].ChannelID)
	assert.Equal(t, second.ChannelID, snap[1].ChannelID)
	assert.Equal(t, third.ChannelID, snap[2].ChannelID)
}

func TestRegistry_LockChannelSerializes(t *testing.T) {
	r := NewRegistry()
	id := models.NewULID()

	var (
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.LockChannel(id)
			defer unlock()

			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak, "critical sections for one channel must not overlap")

	// Different channels lock independently.
	unlockA := r.LockChannel(models.NewULID())
	unlockB := r.LockChannel(models.NewULID())
	unlockA()
	unlockB()
}
