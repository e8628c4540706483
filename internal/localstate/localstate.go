// Package localstate persists the small pieces of client state that live
// outside the reducer: per-day viewed markers for view-count deduplication
// and the cookie-consent preference. Backed by a single JSON file.
package localstate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"storyhub/pkg/logger"
)

// CookieConsent is the stored consent preference with its decision time.
type CookieConsent struct {
	Analytics bool      `json:"analytics"`
	Marketing bool      `json:"marketing"`
	Timestamp time.Time `json:"timestamp"`
}

type fileState struct {
	// Viewed maps "userID:storyID" to the day (2006-01-02) the story was
	// last counted as viewed.
	Viewed  map[string]string `json:"viewed"`
	Consent *CookieConsent    `json:"cookie_consent,omitempty"`
}

// Store is the file-backed local state. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	state fileState
	log   *logger.Logger
}

// Open loads the state file at path, starting fresh when it is missing or
// unreadable. Local state is a convenience, never worth failing startup for.
func Open(path string, log *logger.Logger) *Store {
	s := &Store{
		path:  path,
		state: fileState{Viewed: map[string]string{}},
		log:   log.Named("localstate"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Could not read local state file, starting fresh")
		}
		return s
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		s.log.WithError(err).Warn("Corrupt local state file, starting fresh")
		s.state = fileState{Viewed: map[string]string{}}
	}
	if s.state.Viewed == nil {
		s.state.Viewed = map[string]string{}
	}
	return s
}

// MarkViewed records that the user viewed the story today. Returns false
// when a view was already counted today for this (user, story) pair, which
// is the signal to skip the view-count increment.
func (s *Store) MarkViewed(userID, storyID string, now time.Time) bool {
	day := now.Format("2006-01-02")
	key := fmt.Sprintf("%s:%s", userID, storyID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Viewed[key] == day {
		return false
	}
	s.state.Viewed[key] = day
	s.persistLocked()
	return true
}

// SetConsent stores the cookie-consent decision stamped at now.
func (s *Store) SetConsent(analytics, marketing bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Consent = &CookieConsent{
		Analytics: analytics,
		Marketing: marketing,
		Timestamp: now,
	}
	s.persistLocked()
}

// Consent returns the stored consent decision, nil when never answered.
func (s *Store) Consent() *CookieConsent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Consent == nil {
		return nil
	}
	c := *s.state.Consent
	return &c
}

func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		s.log.WithError(err).Warn("Could not encode local state")
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.WithError(err).Warn("Could not write local state file")
	}
}
