package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

// LoadStatus tracks the full-state load that gates the application.
type LoadStatus int

const (
	LoadPending LoadStatus = iota
	LoadReady
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "loading"
	}
}

// SyncStatus describes the outcome of the most recent round trip.
type SyncStatus int

const (
	SyncIdle SyncStatus = iota
	SyncSyncing
	SyncSynced
	SyncError
)

func (s SyncStatus) String() string {
	switch s {
	case SyncSyncing:
		return "syncing"
	case SyncSynced:
		return "synced"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	State      api.AppState
	Load       LoadStatus
	LoadError  error
	Sync       SyncStatus
	SyncError  error
	LastSynced time.Time

	// Version increases by one for every committed change to State. A
	// composite patch is one change.
	Version uint64
}

// Ready reports whether the initial load has succeeded.
func (s Snapshot) Ready() bool {
	return s.Load == LoadReady
}

// Store owns the single in-memory mirror of server state. State only changes
// after the backend confirms a mutation, and always to what the backend
// returned.
type Store struct {
	backend api.Backend
	bus     *events.Bus
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

// New returns a store in the loading state. bus may be nil.
func New(backend api.Backend, bus *events.Bus, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		bus:     bus,
		log:     log.With().Str("component", "state").Logger(),
		now:     time.Now,
		subs:    make(map[uint64]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.State = cloneState(s.snapshot.State)
	return snap
}

// Subscribe registers fn to receive a fresh snapshot after every change,
// including sync status changes. fn runs on the goroutine that made the
// change, outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Load fetches the full state and replaces the snapshot. Before the first
// success the store reports LoadPending while the request is in flight and
// LoadFailed after a failure. Once ready, a failed reload only marks the sync
// status; the last good state stays visible.
//
// StateLoaded is published either way.
func (s *Store) Load(ctx context.Context) error {
	s.update(func(snap *Snapshot) {
		if snap.Load != LoadReady {
			snap.Load = LoadPending
			snap.LoadError = nil
		}
		snap.Sync = SyncSyncing
	})

	fresh, err := s.backend.FetchState(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("state load failed")
		s.update(func(snap *Snapshot) {
			if snap.Load != LoadReady {
				snap.Load = LoadFailed
				snap.LoadError = err
			}
			snap.Sync = SyncError
			snap.SyncError = err
		})
	} else {
		s.update(func(snap *Snapshot) {
			snap.State = cloneState(fresh)
			snap.Load = LoadReady
			snap.LoadError = nil
			s.markSynced(snap)
		})
		s.log.Debug().
			Int("items", len(fresh.Items)).
			Int("users", len(fresh.Users)).
			Int("logs", len(fresh.Logs)).
			Msg("state loaded")
	}

	snap := s.Snapshot()
	s.bus.Publish(events.Event{
		Kind:  events.StateLoaded,
		Users: snap.State.Users,
		Err:   err,
	})
	return err
}

// Retry re-issues the full-state load.
func (s *Store) Retry(ctx context.Context) error {
	return s.Load(ctx)
}

// mutate runs the three-phase protocol shared by every write: mark syncing,
// make one backend call, then either apply patch atomically or record the
// error. The returned snapshot is the post-patch state.
func mutate[T any](ctx context.Context, s *Store, op string, call func(context.Context) (T, error), patch func(*api.AppState, T)) (T, Snapshot, error) {
	s.update(func(snap *Snapshot) { snap.Sync = SyncSyncing })

	result, err := call(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("op", op).Msg("mutation failed")
		s.update(func(snap *Snapshot) {
			snap.Sync = SyncError
			snap.SyncError = err
		})
		var zero T
		return zero, Snapshot{}, err
	}

	s.update(func(snap *Snapshot) {
		patch(&snap.State, result)
		s.markSynced(snap)
	})
	s.log.Debug().Str("op", op).Msg("mutation applied")
	return result, s.Snapshot(), nil
}

// markSynced records a committed change. Callers hold s.mu.
func (s *Store) markSynced(snap *Snapshot) {
	snap.Sync = SyncSynced
	snap.SyncError = nil
	snap.LastSynced = s.now()
	snap.Version++
}

// update applies fn under the write lock, then notifies subscribers.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) publish(e events.Event) {
	s.bus.Publish(e)
}
