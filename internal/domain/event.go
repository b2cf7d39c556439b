package domain

import "time"

// Author identifies the account that posted an event.
type Author struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Avatar   string `json:"avatar,omitempty"`
	Verified bool   `json:"verified"`
}

// Engagement carries the public interaction counters of a post.
type Engagement struct {
	Likes   int `json:"likes"`
	Shares  int `json:"shares"`
	Replies int `json:"replies"`
}

// Event is one normalized social-media post. It is the unit of ingestion:
// every Event admitted to the analyzer produces exactly one AnalysisSession.
// Events are immutable once created.
type Event struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Author     Author     `json:"author"`
	Timestamp  time.Time  `json:"timestamp"`
	Engagement Engagement `json:"engagement"`
}
