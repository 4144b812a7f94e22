package transcoding

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// session is the in-memory state of one live encoder process. All mutable
// decision state (error window, escalation flags) belongs to the session so
// that a replacement process starts from a clean slate.
type session struct {
	Token       uuid.UUID
	ChannelID   models.ULID
	ChannelName string
	SourceURL   string
	ProfileID   models.ULID
	ProfileName string
	Tier        models.ProfileTier
	JobID       models.ULID
	OutputDir   string
	IsRetry     bool
	StartedAt   time.Time

	cmd      *ffmpeg.Command
	events   chan Event
	loopDone chan struct{}

	errorCount atomic.Int64
	window     *errorWindow

	// stopping marks sessions whose teardown is owned by a caller (stop,
	// fallback, dead-source kill); the exit handler then skips its own
	// transitions.
	stopping atomic.Bool

	// falling and dead latch so each escalation fires at most once per
	// session.
	falling atomic.Bool
	dead    atomic.Bool
}

// Info returns a point-in-time public view of the session.
func (s *session) Info() SessionInfo {
	info := SessionInfo{
		Token:       s.Token,
		ChannelID:   s.ChannelID,
		ChannelName: s.ChannelName,
		ProfileID:   s.ProfileID,
		ProfileName: s.ProfileName,
		Tier:        s.Tier,
		JobID:       s.JobID,
		OutputDir:   s.OutputDir,
		IsRetry:     s.IsRetry,
		StartedAt:   s.StartedAt,
		ErrorCount:  s.errorCount.Load(),
	}
	if s.cmd != nil {
		info.PID = s.cmd.PID()
		info.Uptime = s.cmd.Uptime()
	}
	return info
}

// SessionInfo is the exported snapshot of a live session for the API and
// diagnostics.
type SessionInfo struct {
	Token       uuid.UUID          `json:"token"`
	ChannelID   models.ULID        `json:"channel_id"`
	ChannelName string             `json:"channel_name"`
	ProfileID   models.ULID        `json:"profile_id"`
	ProfileName string             `json:"profile_name"`
	Tier        models.ProfileTier `json:"tier"`
	JobID       models.ULID        `json:"job_id"`
	OutputDir   string             `json:"output_dir"`
	PID         int                `json:"pid"`
	IsRetry     bool               `json:"is_retry"`
	StartedAt   time.Time          `json:"started_at"`
	Uptime      time.Duration      `json:"uptime"`
	ErrorCount  int64              `json:"error_count"`
}

// Registry owns the map of live sessions keyed by channel. It is passed to
// the components that need it; nothing in this package is package-global
// state. Admission re-validation and session insertion happen atomically
// under the registry lock, so the configured tier ceilings cannot be
// overshot by concurrent starts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[models.ULID]*session

	lockMu    sync.Mutex
	chanLocks map[models.ULID]*sync.Mutex
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[models.ULID]*session),
		chanLocks: make(map[models.ULID]*sync.Mutex),
	}
}

// LockChannel acquires the channel's critical-section lock and returns the
// unlock function. Start, stop and restart hold it for their full duration so
// concurrent operations on one channel serialize.
func (r *Registry) LockChannel(id models.ULID) func() {
	r.lockMu.Lock()
	l, ok := r.chanLocks[id]
	if !ok {
		l = &sync.Mutex{}
		r.chanLocks[id] = l
	}
	r.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the channel's live session, nil if none.
func (r *Registry) Get(id models.ULID) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Has reports whether the channel has a live session.
func (r *Registry) Has(id models.ULID) bool {
	return r.Get(id) != nil
}

// Admit validates tier capacity and inserts the session in one critical
// section. A limit of zero or below disables the tier. With bypass set the
// capacity check is skipped but the one-session-per-channel invariant still
// holds.
func (r *Registry) Admit(sess *session, limit int, bypass bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.ChannelID]; ok {
		return ErrAlreadyRunning
	}
	if !bypass {
		current := r.countTierLocked(sess.Tier)
		if limit <= 0 || current >= limit {
			return &ResourceExhaustedError{Tier: sess.Tier, Current: current, Max: limit}
		}
	}
	r.sessions[sess.ChannelID] = sess
	return nil
}

// Remove deletes the channel's session if the token still matches, guarding
// against a stale teardown racing a replacement session. Returns true when a
// session was removed.
func (r *Registry) Remove(id models.ULID, token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || sess.Token != token {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountTier returns the number of live sessions at the tier.
func (r *Registry) CountTier(tier models.ProfileTier) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countTierLocked(tier)
}

func (r *Registry) countTierLocked(tier models.ProfileTier) int {
	n := 0
	for _, s := range r.sessions {
		if s.Tier == tier {
			n++
		}
	}
	return n
}

// CountByTier returns live session counts for every tier, including zeroes.
func (r *Registry) CountByTier() map[models.ProfileTier]int {
	counts := make(map[models.ProfileTier]int, 4)
	for _, t := range models.AllTiers() {
		counts[t] = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		counts[s.Tier]++
	}
	return counts
}

// Snapshot returns a copy of all live sessions ordered by start time.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}
