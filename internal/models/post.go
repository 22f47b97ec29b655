package models

import "time"

// * Post is one work-log entry as read from the record store, already normalised
type Post struct {
	RecordID      string    `json:"record_id"`
	PostID        string    `json:"post_id"`
	RepositoryURL string    `json:"repository_url"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"created_at"`
	GitChanges    string    `json:"git_changes,omitempty"`
}

// * RepositoryGroup holds the posts sharing one repository URL, ordered by CreatedAt ascending
type RepositoryGroup struct {
	URL   string `json:"url"`
	Posts []Post `json:"posts"`
}

// Window is the half-open interval (Start, End] owned by one post. A nil Start
// means the window is unbounded below.
type Window struct {
	Start *time.Time
	End   time.Time
}

// * PostChanges pairs a post with the summary computed for it during a pass
type PostChanges struct {
	Post    Post
	Summary *ChangeSummary
}
