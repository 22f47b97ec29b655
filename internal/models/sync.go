package models

import "time"

type RepositoryOutcome struct {
	URL     string `json:"url"`
	Posts   int    `json:"posts"`
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// * PassResult is the payload recorded after one fetch → group → process → write cycle
type PassResult struct {
	RunID          string              `json:"run_id"`
	Success        bool                `json:"success"`
	Message        string              `json:"message,omitempty"`
	TotalPosts     int                 `json:"total_posts"`
	ReposProcessed int                 `json:"repos_processed"`
	ReposFailed    int                 `json:"repos_failed"`
	PostsUpdated   int                 `json:"posts_updated"`
	Timestamp      time.Time           `json:"timestamp"`
	Repositories   []RepositoryOutcome `json:"repositories,omitempty"`
}

// * SyncStatus is a point-in-time copy of the orchestrator's state
type SyncStatus struct {
	State       string      `json:"state"`
	Running     bool        `json:"running"`
	LastRunTime *time.Time  `json:"last_run_time"`
	LastResult  *PassResult `json:"last_result"`
	LastError   string      `json:"last_error,omitempty"`
	RunCount    int64       `json:"run_count"`
	Timestamp   time.Time   `json:"timestamp"`
}
