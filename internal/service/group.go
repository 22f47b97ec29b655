package service

import (
	"sort"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
)

// GroupPosts buckets posts by repository URL, in order of first appearance,
// and sorts each bucket by creation time. Ties fall back to record id so that
// repeated passes derive identical windows.
func GroupPosts(posts []models.Post) []models.RepositoryGroup {
	index := make(map[string]int)
	var groups []models.RepositoryGroup

	for _, post := range posts {
		if post.RepositoryURL == "" {
			continue
		}
		i, ok := index[post.RepositoryURL]
		if !ok {
			i = len(groups)
			index[post.RepositoryURL] = i
			groups = append(groups, models.RepositoryGroup{URL: post.RepositoryURL})
		}
		groups[i].Posts = append(groups[i].Posts, post)
	}

	for _, g := range groups {
		sort.SliceStable(g.Posts, func(a, b int) bool {
			pa, pb := g.Posts[a], g.Posts[b]
			if !pa.CreatedAt.Equal(pb.CreatedAt) {
				return pa.CreatedAt.Before(pb.CreatedAt)
			}
			return pa.RecordID < pb.RecordID
		})
	}

	return groups
}
