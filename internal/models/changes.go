package models

import (
	"encoding/json"
	"time"
)

const NoCommitsSummary = "No commits found in this timerange"

// DateLayout matches git's %ai author date rendering.
const DateLayout = "2006-01-02 15:04:05 -0700"

type CommitStats struct {
	FilesChanged   int `json:"files_changed"`
	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`
}

type CommitChanges struct {
	Hash    string       `json:"hash"`
	Author  string       `json:"author"`
	Date    string       `json:"date"`
	Message string       `json:"message"`
	Link    string       `json:"link"`
	Files   []FileChange `json:"files"`
	Stats   CommitStats  `json:"stats"`
}

type WindowTotals struct {
	TotalCommits      int `json:"total_commits"`
	TotalFilesChanged int `json:"total_files_changed"`
	TotalAdditions    int `json:"total_additions"`
	TotalDeletions    int `json:"total_deletions"`
}

// ChangeSummary is the result attached to a post. A nil Totals marks an empty
// window, which serialises with the literal NoCommitsSummary text.
type ChangeSummary struct {
	Commits []CommitChanges
	Totals  *WindowTotals
}

// * EmptySummary is the explicit "found nothing" marker
func EmptySummary() *ChangeSummary {
	return &ChangeSummary{Commits: []CommitChanges{}}
}

func (s *ChangeSummary) Empty() bool {
	return s.Totals == nil
}

// NewCommitChanges folds a commit and its file changes into a summary entry.
// link is the full-hash commit link; the recorded hash is shortened.
func NewCommitChanges(c Commit, link string, files []FileChange) CommitChanges {
	if files == nil {
		files = []FileChange{}
	}

	stats := CommitStats{FilesChanged: len(files)}
	for _, f := range files {
		stats.TotalAdditions += f.Additions
		stats.TotalDeletions += f.Deletions
	}

	return CommitChanges{
		Hash:    c.ShortHash(),
		Author:  c.AuthorName,
		Date:    c.AuthorDate.Format(DateLayout),
		Message: c.Subject,
		Link:    link,
		Files:   files,
		Stats:   stats,
	}
}

// NewChangeSummary sums commit entries into window totals. No deduplication of
// paths across commits happens: every commit is its own ledger entry.
func NewChangeSummary(commits []CommitChanges) *ChangeSummary {
	if len(commits) == 0 {
		return EmptySummary()
	}

	totals := &WindowTotals{TotalCommits: len(commits)}
	for _, c := range commits {
		totals.TotalFilesChanged += c.Stats.FilesChanged
		totals.TotalAdditions += c.Stats.TotalAdditions
		totals.TotalDeletions += c.Stats.TotalDeletions
	}

	return &ChangeSummary{Commits: commits, Totals: totals}
}

func (s ChangeSummary) MarshalJSON() ([]byte, error) {
	commits := s.Commits
	if commits == nil {
		commits = []CommitChanges{}
	}

	var summary any = NoCommitsSummary
	if s.Totals != nil {
		summary = s.Totals
	}

	return json.Marshal(struct {
		Commits []CommitChanges `json:"commits"`
		Summary any             `json:"summary"`
	}{commits, summary})
}

func (s *ChangeSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Commits []CommitChanges `json:"commits"`
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Commits = raw.Commits
	s.Totals = nil

	var text string
	if err := json.Unmarshal(raw.Summary, &text); err == nil {
		return nil
	}

	var totals WindowTotals
	if err := json.Unmarshal(raw.Summary, &totals); err != nil {
		return err
	}
	s.Totals = &totals
	return nil
}

// * Encode renders the summary as the persisted text blob
func (s *ChangeSummary) Encode() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// * SummaryEvent is published after a summary is written back
type SummaryEvent struct {
	RecordID      string    `json:"record_id"`
	PostID        string    `json:"post_id"`
	RepositoryURL string    `json:"repository_url"`
	TotalCommits  int       `json:"total_commits"`
	Timestamp     time.Time `json:"timestamp"`
}
