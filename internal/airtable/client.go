package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

var (
	baseURL = "https://api.airtable.com/v0"
)

const pageSize = 100

type Config struct {
	APIKey         string
	BaseID         string
	Table          string
	ProcessedField string
}

// Client is the Airtable-backed record store.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

func NewClient(cfg Config) *Client {
	rl := NewRateLimiter(requestsPerSecond)

	client := &http.Client{
		Timeout:   rl.clientTimeout(),
		Transport: rl.Middleware(http.DefaultTransport),
	}

	return &Client{
		httpClient: client,
		cfg:        cfg,
	}
}

func (c *Client) tableURL(parts ...string) string {
	u := baseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(c.cfg.Table)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (c *Client) makeRequest(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	return resp, nil
}

// pendingFormula selects posts with a repository and a username whose
// processed field is still blank.
func (c *Client) pendingFormula() string {
	f := c.cfg.ProcessedField
	return fmt.Sprintf("AND({%s}!='', {%s}!='', OR({%s}='', {%s}=BLANK()))", fieldGitHubURL, fieldUsername, f, f)
}

func (c *Client) listQuery(offset string) url.Values {
	q := make(url.Values)
	q.Set("pageSize", fmt.Sprint(pageSize))
	for _, f := range []string{fieldPostID, fieldGitHubURL, fieldUsername, fieldGitChanges, fieldCreatedAt, c.cfg.ProcessedField} {
		q.Add("fields[]", f)
	}
	q.Set("filterByFormula", c.pendingFormula())
	if offset != "" {
		q.Set("offset", offset)
	}
	return q
}

func (c *Client) FetchPendingPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	offset := ""
	page := 1

	for {
		resp, err := c.makeRequest(ctx, http.MethodGet, c.tableURL()+"?"+c.listQuery(offset).Encode(), nil)
		if err != nil {
			return nil, errors.New(
				errors.RefAirtableAPI,
				"Failed to fetch posts from Airtable",
				fmt.Sprintf("Could not connect to Airtable to retrieve page %d of posts", page),
				err,
				errors.LevelError,
			)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, errors.New(
				errors.RefAirtableAPI,
				"Failed to read posts from Airtable",
				fmt.Sprintf("Could not read the response body for page %d of posts", page),
				err,
				errors.LevelError,
			)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, errors.New(
				errors.RefAirtableAPI,
				"Failed to fetch posts from Airtable",
				fmt.Sprintf("Airtable returned status %d for page %d: %s", resp.StatusCode, page, body),
				nil,
				errors.LevelError,
			)
		}

		var list listResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, errors.New(
				errors.RefAirtableAPI,
				"Failed to parse posts from Airtable",
				fmt.Sprintf("Could not understand the records returned for page %d", page),
				err,
				errors.LevelError,
			)
		}

		for _, rec := range list.Records {
			if post, ok := toPost(rec); ok {
				posts = append(posts, post)
			}
		}

		if list.Offset == "" {
			break
		}
		offset = list.Offset
		page++
		logger.Debug("Fetched %d posts so far...", len(posts))
	}

	logger.Info("Fetched %d pending posts from Airtable", len(posts))
	return posts, nil
}

// toPost normalises one record. Records without a repository URL or with an
// unreadable creation time cannot be placed on a timeline and are dropped.
func toPost(rec record) (models.Post, bool) {
	repoURL, ok := firstValue(rec.Fields[fieldGitHubURL])
	if !ok {
		logger.Debug("Skipping record %s: no repository URL", rec.ID)
		return models.Post{}, false
	}

	created, ok := firstValue(rec.Fields[fieldCreatedAt])
	if !ok {
		created = rec.CreatedTime
	}
	createdAt, err := time.Parse(time.RFC3339, created)
	if err != nil {
		logger.Warn("Skipping record %s: unparseable Created At %q", rec.ID, created)
		return models.Post{}, false
	}

	postID, _ := firstValue(rec.Fields[fieldPostID])
	username, _ := firstValue(rec.Fields[fieldUsername])
	changes, _ := firstValue(rec.Fields[fieldGitChanges])

	return models.Post{
		RecordID:      rec.ID,
		PostID:        postID,
		RepositoryURL: repoURL,
		Username:      username,
		CreatedAt:     createdAt.UTC(),
		GitChanges:    changes,
	}, true
}

func (c *Client) UpdateGitChanges(ctx context.Context, recordID, changes string) error {
	payload, err := json.Marshal(updateRequest{Fields: map[string]string{fieldGitChanges: changes}})
	if err != nil {
		return err
	}

	resp, err := c.makeRequest(ctx, http.MethodPatch, c.tableURL(recordID), payload)
	if err != nil {
		return errors.New(
			errors.RefAirtableAPI,
			"Failed to update post in Airtable",
			fmt.Sprintf("Could not connect to Airtable to update record %s", recordID),
			err,
			errors.LevelError,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.New(
			errors.RefAirtableAPI,
			"Failed to update post in Airtable",
			fmt.Sprintf("Airtable returned status %d for record %s: %s", resp.StatusCode, recordID, body),
			nil,
			errors.LevelError,
		)
	}

	return nil
}
