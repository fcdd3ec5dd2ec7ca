package models

import "time"

// Interrogation holds the state of an ongoing interrogation of an NPC.
// It contains all the completions (AI-chat questions and answers) in order.
type Interrogation struct {
	CaseID      string       `json:"case_id"`
	NPC         NPC          `json:"npc"`
	Completions []Completion `json:"completions"`
}

// Completion is a question and answer pair that is part of an interrogation.
type Completion struct {
	ID       int64  `json:"id"`
	Order    int64  `json:"order"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Review is the verdict on whether a case's solution follows from its clues.
type Review struct {
	Consistent bool   `json:"consistent"`
	Notes      string `json:"notes"`
}

// GeneratedCase is a validated case together with what the generation pipeline learned about it.
type GeneratedCase struct {
	Case            Case             `json:"case"`
	Theme           string           `json:"theme"`
	Briefing        string           `json:"briefing"`
	Review          *Review          `json:"review,omitempty"`
	ReferenceIssues []ReferenceIssue `json:"reference_issues"`
	// StageFailures names the optional pipeline stages that failed, e.g. "review".
	StageFailures   []string         `json:"stage_failures,omitempty"`
	Created         time.Time        `json:"created"`
}

// CaseSummary is the listing view of a stored case.
type CaseSummary struct {
	CaseID   string    `json:"case_id"`
	Theme    string    `json:"theme"`
	Crime    string    `json:"crime"`
	Victim   string    `json:"victim"`
	Location string    `json:"location"`
	Created  time.Time `json:"created"`
}
