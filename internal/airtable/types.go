package airtable

import (
	"encoding/json"
	"strconv"
)

const (
	fieldPostID     = "PostID"
	fieldGitHubURL  = "GitHubUrl"
	fieldUsername   = "GitHubUsername"
	fieldGitChanges = "GitChanges"
	fieldCreatedAt  = "Created At"
)

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type record struct {
	ID          string                     `json:"id"`
	CreatedTime string                     `json:"createdTime,omitempty"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

type updateRequest struct {
	Fields map[string]string `json:"fields"`
}

// * Lookup and rollup fields come back as arrays; plain fields as scalars
func firstValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		return firstValue(list[0])
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}

	return "", false
}
