package models

import "time"

// * Commit as read from repository history
type Commit struct {
	Hash        string    `json:"hash"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	AuthorDate  time.Time `json:"author_date"`
	Subject     string    `json:"subject"`
}

// ShortHash returns the 7 character abbreviation used in summaries.
func (c Commit) ShortHash() string {
	if len(c.Hash) <= 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// * FileChange is one line of a commit's numeric diff stat. Binary files report zero counts.
type FileChange struct {
	Path      string `json:"filepath"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	IsBinary  bool   `json:"is_binary"`
	Link      string `json:"link"`
}
