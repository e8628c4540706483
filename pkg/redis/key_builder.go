package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building so staging and
// production deployments can share an instance without colliding.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyFinishedContest keys the cached story list of a finalized contest.
func (kb *KeyBuilder) KeyFinishedContest(contestID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFinishedContest, contestID))
}

// KeyFinishedStory keys a cached finalized story.
func (kb *KeyBuilder) KeyFinishedStory(storyID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFinishedStory, storyID))
}

// PatternFinishedAll matches all finished-entity keys in this environment.
func (kb *KeyBuilder) PatternFinishedAll() string {
	return kb.BuildKey(PatternFinished)
}
