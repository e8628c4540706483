package repository

import (
	"context"
	"sync"

	"storyhub/internal/domain"
	apperrors "storyhub/pkg/errors"
)

// MemoryStore is an in-memory RecordStore. It backs local development when
// neither a PostgREST endpoint nor a database URL is configured, and doubles
// as the fixture store in handler tests.
type MemoryStore struct {
	mu            sync.Mutex
	contests      map[string]domain.Contest
	stories       map[string]domain.Story
	votes         map[string]domain.Vote
	profiles      map[string]domain.UserProfile
	comments      map[string]domain.Comment
	reports       []domain.Report
	notifications []string
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contests: map[string]domain.Contest{},
		stories:  map[string]domain.Story{},
		votes:    map[string]domain.Vote{},
		profiles: map[string]domain.UserProfile{},
		comments: map[string]domain.Comment{},
	}
}

// SeedContest inserts or replaces a contest.
func (m *MemoryStore) SeedContest(c domain.Contest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contests[c.ID] = c
}

// SeedStory inserts or replaces a story.
func (m *MemoryStore) SeedStory(s domain.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[s.ID] = s
}

// SeedProfile inserts or replaces a profile.
func (m *MemoryStore) SeedProfile(p domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func memVoteKey(userID, storyID string) string { return userID + "|" + storyID }

func (m *MemoryStore) ListContests(ctx context.Context) ([]domain.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contest, 0, len(m.contests))
	for _, c := range m.contests {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryStore) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contests[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("contest not found")
	}
	return &c, nil
}

func (m *MemoryStore) GetContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.ContestStats{ContestID: contestID}
	participants := map[string]bool{}
	for _, s := range m.stories {
		if s.ContestID == contestID {
			stats.Stories++
			participants[s.UserID] = true
		}
	}
	for _, v := range m.votes {
		if v.ContestID == contestID {
			stats.Votes++
		}
	}
	for _, c := range m.comments {
		if s, ok := m.stories[c.StoryID]; ok && s.ContestID == contestID {
			stats.Comments++
		}
	}
	stats.Participants = len(participants)
	return stats, nil
}

func (m *MemoryStore) ListStoriesByContest(ctx context.Context, contestID string) ([]domain.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Story
	for _, s := range m.stories {
		if s.ContestID == contestID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListStoriesByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Story
	for _, s := range m.stories {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("story not found")
	}
	return &s, nil
}

func (m *MemoryStore) InsertStory(ctx context.Context, story *domain.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[story.ID] = *story
	return nil
}

func (m *MemoryStore) DeleteStory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stories, id)
	return nil
}

func (m *MemoryStore) DeleteStories(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.stories, id)
	}
	return nil
}

func (m *MemoryStore) IncrementStoryViews(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok {
		return apperrors.NewNotFoundError("story not found")
	}
	s.ViewsCount++
	m.stories[id] = s
	return nil
}

func (m *MemoryStore) ListVotesByUser(ctx context.Context, userID string) ([]domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Vote
	for _, v := range m.votes {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountVotesInContest(ctx context.Context, userID, contestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.votes {
		if v.UserID == userID && v.ContestID == contestID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetVote(ctx context.Context, userID, storyID string) (*domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[memVoteKey(userID, storyID)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MemoryStore) InsertVote(ctx context.Context, vote *domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[memVoteKey(vote.UserID, vote.StoryID)] = *vote
	if s, ok := m.stories[vote.StoryID]; ok {
		s.LikesCount++
		m.stories[vote.StoryID] = s
	}
	return nil
}

func (m *MemoryStore) DeleteVote(ctx context.Context, userID, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[memVoteKey(userID, storyID)]; !ok {
		return nil
	}
	delete(m.votes, memVoteKey(userID, storyID))
	if s, ok := m.stories[storyID]; ok && s.LikesCount > 0 {
		s.LikesCount--
		m.stories[storyID] = s
	}
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("profile not found")
	}
	return &p, nil
}

func (m *MemoryStore) ListProfiles(ctx context.Context, userIDs []string) ([]domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserProfile
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListComments(ctx context.Context, storyID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Comment
	for _, c := range m.comments {
		if c.StoryID == storyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertComment(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[comment.ID] = *comment
	return nil
}

func (m *MemoryStore) DeleteComment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *MemoryStore) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("comment not found")
	}
	return &c, nil
}

func (m *MemoryStore) InsertReport(ctx context.Context, report *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *report)
	return nil
}

func (m *MemoryStore) InsertNotification(ctx context.Context, userID, kind, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, kind)
	return nil
}
