package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

const pageSize = 100

// PostgresDB is a record store for deployments that keep posts in Postgres
// instead of Airtable. It follows the same pending filter and page size.
type PostgresDB struct {
	db *sql.DB
}

func NewPostgresDB(url string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to open database connection",
			"Could not initialize database connection",
			err,
			errors.LevelError,
		)
	}

	// * Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// * Verify connection
	if err := db.Ping(); err != nil {
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to verify database connection",
			"Database ping failed",
			err,
			errors.LevelError,
		)
	}

	logger.Info("connected to database successfully 🎉")
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Migrate() error {
	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration driver",
			"Could not initialize migration driver instance",
			err,
			errors.LevelError,
		)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration instance",
			"Could not create migration instance with database",
			err,
			errors.LevelError,
		)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to run migrations",
			"Migration up operation failed",
			err,
			errors.LevelError,
		)
	}

	return nil
}

func (p *PostgresDB) Close() error {
	if err := p.db.Close(); err != nil {
		return errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to close database connection",
			"Error while closing database connection",
			err,
			errors.LevelWarning,
		)
	}
	return nil
}

const pendingPostsQuery = `
	SELECT record_id, post_id, github_url, github_username, created_at, COALESCE(git_changes, '')
	FROM posts
	WHERE github_url <> ''
		AND github_username <> ''
		AND time_spent_on_asset IS NULL
		AND record_id > $1
	ORDER BY record_id
	LIMIT $2
`

// FetchPendingPosts pages by record_id; the last id of a page is the
// continuation token for the next.
func (p *PostgresDB) FetchPendingPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	after := ""

	for {
		page, err := p.pendingPage(ctx, after)
		if err != nil {
			return nil, err
		}
		posts = append(posts, page...)

		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].RecordID
	}

	logger.Info("Fetched %d pending posts from database", len(posts))
	return posts, nil
}

func (p *PostgresDB) pendingPage(ctx context.Context, after string) ([]models.Post, error) {
	rows, err := p.db.QueryContext(ctx, pendingPostsQuery, after, pageSize)
	if err != nil {
		return nil, errors.New(
			"DB_POST_ERROR",
			"Failed to query pending posts",
			fmt.Sprintf("Could not fetch posts after record '%s'", after),
			err,
			errors.LevelError,
		)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(
			&post.RecordID, &post.PostID, &post.RepositoryURL,
			&post.Username, &post.CreatedAt, &post.GitChanges,
		)
		if err != nil {
			return nil, errors.New(
				"DB_POST_ERROR",
				"Failed to scan post",
				"Error while scanning post row",
				err,
				errors.LevelError,
			)
		}
		post.CreatedAt = post.CreatedAt.UTC()
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.New(
			"DB_POST_ERROR",
			"Failed to process posts",
			"Error while processing post rows",
			err,
			errors.LevelError,
		)
	}

	return posts, nil
}

func (p *PostgresDB) UpdateGitChanges(ctx context.Context, recordID, changes string) error {
	query := `
		UPDATE posts
		SET git_changes = $1, updated_at = NOW()
		WHERE record_id = $2
	`

	res, err := p.db.ExecContext(ctx, query, changes, recordID)
	if err != nil {
		return errors.New(
			"DB_POST_ERROR",
			"Failed to update post",
			fmt.Sprintf("Could not update git changes for record '%s'", recordID),
			err,
			errors.LevelError,
		)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(
			"DB_POST_NOT_FOUND",
			"Post not found",
			fmt.Sprintf("No post with record id '%s'", recordID),
			nil,
			errors.LevelError,
		)
	}

	return nil
}
