package store

import (
	"sync"
	"time"

	"storyhub/internal/phase"
	"storyhub/pkg/logger"
)

// Listener receives a snapshot after every dispatch.
type Listener func(State)

// Store is the single-writer state container. Dispatch is serialized by a
// mutex, so from any caller's perspective a dispatch is atomic and actions
// dispatched in program order apply in program order. Construct as many
// independent instances as you need; there is no package-level state.
type Store struct {
	mu       sync.RWMutex
	state    State
	maxVotes int
	log      *logger.Logger

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// New creates a store with the initial state tree.
func New(maxVotes int, log *logger.Logger) *Store {
	return &Store{
		state:    NewState(),
		maxVotes: maxVotes,
		log:      log.Named("store"),
		subs:     map[int]Listener{},
	}
}

// Dispatch runs the reducer and notifies subscribers with the new snapshot.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = reduce(s.state, action)
	snapshot := s.state
	s.mu.Unlock()

	s.log.WithField("action", actionName(action)).Debug("dispatched")

	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Snapshot returns the current state. The returned value shares immutable
// backing data with the store; callers must not mutate it.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// MaxVotes returns the standing-vote budget for the current contest.
func (s *Store) MaxVotes() int {
	return s.maxVotes
}

// IsAuthReady reports whether the auth subsystem has settled and a user is
// signed in.
func (s *Store) IsAuthReady() bool {
	st := s.Snapshot()
	return st.AuthInitialized && st.IsAuthenticated
}

// CurrentContestPhase derives the current contest's phase at the given
// instant. Derived on every call; phase is never stored.
func (s *Store) CurrentContestPhase(now time.Time) phase.Phase {
	st := s.Snapshot()
	if st.CurrentContest == nil {
		return phase.PhaseUnknown
	}
	return phase.Resolve(*st.CurrentContest, now)
}

// VotesRemaining returns how many votes the user may still cast in the
// current contest.
func (s *Store) VotesRemaining() int {
	st := s.Snapshot()
	if st.CurrentContest == nil {
		return s.maxVotes
	}
	used := st.CountVotesIn(st.CurrentContest.ID)
	if used >= s.maxVotes {
		return 0
	}
	return s.maxVotes - used
}

func actionName(a Action) string {
	switch a.(type) {
	case AuthSettled:
		return "AuthSettled"
	case SignedOut:
		return "SignedOut"
	case UserScopedCleared:
		return "UserScopedCleared"
	case ResetPendingSet:
		return "ResetPendingSet"
	case ContestsLoaded:
		return "ContestsLoaded"
	case UserStoriesLoaded:
		return "UserStoriesLoaded"
	case StorySubmitted:
		return "StorySubmitted"
	case StoriesRemoved:
		return "StoriesRemoved"
	case VotesLoaded:
		return "VotesLoaded"
	case GalleryLoaded:
		return "GalleryLoaded"
	case StoryVotePatched:
		return "StoryVotePatched"
	case StoryViewCounted:
		return "StoryViewCounted"
	case FinishedContestCached:
		return "FinishedContestCached"
	case FinishedStoryCached:
		return "FinishedStoryCached"
	case FinishedCacheCleared:
		return "FinishedCacheCleared"
	case SliceLoadingSet:
		return "SliceLoadingSet"
	default:
		return "Unknown"
	}
}
