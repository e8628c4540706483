package service

import (
	"context"
	"sync"

	"storyhub/internal/domain"
	apperrors "storyhub/pkg/errors"
)

// fakeRecordStore is an in-memory RecordStore for service tests.
type fakeRecordStore struct {
	mu            sync.Mutex
	contests      map[string]domain.Contest
	stories       map[string]domain.Story
	votes         map[string]domain.Vote // keyed userID|storyID
	profiles      map[string]domain.UserProfile
	comments      map[string]domain.Comment
	reports       []domain.Report
	notifications []string

	profileErr    error
	insertVoteErr error
	countErr      error

	storyListCalls int
	viewIncrements map[string]int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		contests:       map[string]domain.Contest{},
		stories:        map[string]domain.Story{},
		votes:          map[string]domain.Vote{},
		profiles:       map[string]domain.UserProfile{},
		comments:       map[string]domain.Comment{},
		viewIncrements: map[string]int{},
	}
}

func voteKey(userID, storyID string) string { return userID + "|" + storyID }

func (f *fakeRecordStore) ListContests(ctx context.Context) ([]domain.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Contest, 0, len(f.contests))
	for _, c := range f.contests {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRecordStore) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contests[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("contest not found")
	}
	return &c, nil
}

func (f *fakeRecordStore) GetContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error) {
	return &domain.ContestStats{ContestID: contestID}, nil
}

func (f *fakeRecordStore) ListStoriesByContest(ctx context.Context, contestID string) ([]domain.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storyListCalls++
	var out []domain.Story
	for _, s := range f.stories {
		if s.ContestID == contestID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) ListStoriesByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Story
	for _, s := range f.stories {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stories[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("story not found")
	}
	return &s, nil
}

func (f *fakeRecordStore) InsertStory(ctx context.Context, story *domain.Story) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stories[story.ID] = *story
	return nil
}

func (f *fakeRecordStore) DeleteStory(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stories, id)
	return nil
}

func (f *fakeRecordStore) DeleteStories(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.stories, id)
	}
	return nil
}

func (f *fakeRecordStore) IncrementStoryViews(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewIncrements[id]++
	return nil
}

func (f *fakeRecordStore) ListVotesByUser(ctx context.Context, userID string) ([]domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Vote
	for _, v := range f.votes {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) CountVotesInContest(ctx context.Context, userID, contestID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, v := range f.votes {
		if v.UserID == userID && v.ContestID == contestID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordStore) GetVote(ctx context.Context, userID, storyID string) (*domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[voteKey(userID, storyID)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeRecordStore) InsertVote(ctx context.Context, vote *domain.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertVoteErr != nil {
		return f.insertVoteErr
	}
	f.votes[voteKey(vote.UserID, vote.StoryID)] = *vote
	return nil
}

func (f *fakeRecordStore) DeleteVote(ctx context.Context, userID, storyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.votes, voteKey(userID, storyID))
	return nil
}

func (f *fakeRecordStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("profile not found")
	}
	return &p, nil
}

func (f *fakeRecordStore) ListProfiles(ctx context.Context, userIDs []string) ([]domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UserProfile
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) ListComments(ctx context.Context, storyID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comment
	for _, c := range f.comments {
		if c.StoryID == storyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) InsertComment(ctx context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[comment.ID] = *comment
	return nil
}

func (f *fakeRecordStore) DeleteComment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.comments, id)
	return nil
}

func (f *fakeRecordStore) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("comment not found")
	}
	return &c, nil
}

func (f *fakeRecordStore) InsertReport(ctx context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeRecordStore) InsertNotification(ctx context.Context, userID, kind, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, kind)
	return nil
}

func (f *fakeRecordStore) countVotes(userID, contestID string) int {
	n, _ := f.CountVotesInContest(context.Background(), userID, contestID)
	return n
}

// fakeAuth is an in-memory AuthProvider driving the event stream by hand.
type fakeAuth struct {
	mu           sync.Mutex
	events       chan domain.AuthEvent
	session      *domain.Session
	signOutCalls int
	updateErr    error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{events: make(chan domain.AuthEvent, 16)}
}

func (f *fakeAuth) Start(ctx context.Context) {
	f.mu.Lock()
	session := f.session
	f.mu.Unlock()
	f.events <- domain.AuthEvent{Type: domain.AuthEventInitialSession, Session: session}
}

func (f *fakeAuth) Events() <-chan domain.AuthEvent { return f.events }

func (f *fakeAuth) GetSession(ctx context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	session := &domain.Session{UserID: "user-1", Email: email}
	f.mu.Lock()
	f.session = session
	f.mu.Unlock()
	f.events <- domain.AuthEvent{Type: domain.AuthEventSignedIn, Session: session}
	return session, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password, name string) (*domain.Session, error) {
	return f.SignInWithPassword(ctx, email, password)
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.session = nil
	f.signOutCalls++
	f.mu.Unlock()
	f.events <- domain.AuthEvent{Type: domain.AuthEventSignedOut}
	return nil
}

func (f *fakeAuth) ResetPasswordForEmail(ctx context.Context, email string) error { return nil }

func (f *fakeAuth) SignInWithOAuth(provider, state string) (string, error) {
	return "https://auth.example.com/authorize?provider=" + provider, nil
}

func (f *fakeAuth) ExchangeOAuthCode(ctx context.Context, code string) (*domain.Session, error) {
	return nil, nil
}

func (f *fakeAuth) UpdateUser(ctx context.Context, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeAuth) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}
