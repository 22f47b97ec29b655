package models

import "context"

// * RecordStore is the external store holding posts. Implementations normalise
// * loosely typed payloads into Post before returning them.
type RecordStore interface {
	// FetchPendingPosts pages through every post with a repository URL and a
	// username whose processed-result field is still empty.
	FetchPendingPosts(ctx context.Context) ([]Post, error)

	// UpdateGitChanges overwrites the change summary field of one record.
	UpdateGitChanges(ctx context.Context, recordID, changes string) error
}
