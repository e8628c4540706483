package domain

import "time"

// Contest represents a time-boxed writing contest. Deadlines are kept as the
// raw wire strings because an unparsable deadline is a meaningful state (the
// phase resolver maps it to PhaseUnknown instead of guessing).
type Contest struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Month              string     `json:"month"`
	SubmissionDeadline string     `json:"submission_deadline"`
	VotingDeadline     string     `json:"voting_deadline"`
	FinalizedAt        *time.Time `json:"finalized_at,omitempty"`
	Status             string     `json:"status"`
	ParticipantsCount  int        `json:"participants_count"`
}

// Finalized reports whether the contest is closed for good. Only "results"
// carries meaning in Status; everything else is free-form display text.
func (c Contest) Finalized() bool {
	return c.FinalizedAt != nil || c.Status == StatusResults
}

// StatusResults is the only contest status value the client interprets.
const StatusResults = "results"

// ContestStats is the server-side aggregate for a contest. Row-level
// security may hide rows from the caller, so zeroes are valid data here.
type ContestStats struct {
	ContestID    string `json:"contest_id"`
	Stories      int    `json:"stories"`
	Votes        int    `json:"votes"`
	Comments     int    `json:"comments"`
	Participants int    `json:"participants"`
}
