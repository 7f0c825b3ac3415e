package tweetstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/xid"
	_ "modernc.org/sqlite"

	"musefeed/internal/model"
)

// DB wraps the SQLite database holding creators, tweets, and budgets.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serializes writers anyway, the foreign_keys
	// pragma is per-connection, and :memory: databases are per-connection.
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS creators (
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL,
	  handle TEXT NOT NULL,
	  provider_user_id TEXT NOT NULL DEFAULT '',
	  active INTEGER NOT NULL DEFAULT 1,
	  requested_daily_count INTEGER NOT NULL DEFAULT 10,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_creators_user ON creators(user_id, active);
	CREATE TABLE IF NOT EXISTS tweets (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  creator_id TEXT NOT NULL REFERENCES creators(id) ON DELETE CASCADE,
	  source_id TEXT NOT NULL,
	  content TEXT NOT NULL,
	  author_handle TEXT NOT NULL,
	  published_at INTEGER NOT NULL,
	  metrics TEXT,
	  UNIQUE(creator_id, source_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tweets_creator_pub ON tweets(creator_id, published_at);
	CREATE INDEX IF NOT EXISTS idx_tweets_pub ON tweets(published_at);
	CREATE TABLE IF NOT EXISTS budgets (
	  user_id TEXT PRIMARY KEY,
	  daily_limit INTEGER NOT NULL
	);
	`)
	return err
}

// AddCreator records a new tracked creator and returns it with a fresh id.
func (d *DB) AddCreator(ctx context.Context, userID, handle, providerUserID string, requestedDailyCount int) (model.Creator, error) {
	c := model.Creator{
		ID:                  xid.New().String(),
		UserID:              userID,
		Handle:              handle,
		ProviderUserID:      providerUserID,
		Active:              true,
		RequestedDailyCount: requestedDailyCount,
		CreatedAt:           time.Now().UTC(),
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO creators(id, user_id, handle, provider_user_id, active, requested_daily_count, created_at) VALUES(?,?,?,?,1,?,?)`,
		c.ID, c.UserID, c.Handle, c.ProviderUserID, c.RequestedDailyCount, c.CreatedAt.Unix())
	if err != nil {
		return model.Creator{}, err
	}
	return c, nil
}

// SetCreatorActive pauses or resumes a creator. Paused creators keep their
// tweets but drop out of allocation and sampling.
func (d *DB) SetCreatorActive(ctx context.Context, creatorID string, active bool) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE creators SET active=? WHERE id=?`, boolToInt(active), creatorID)
	return err
}

// DeleteCreator removes a creator and, via cascade, its stored tweets.
func (d *DB) DeleteCreator(ctx context.Context, creatorID string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM creators WHERE id=?`, creatorID)
	return err
}

// FindCreatorByHandle returns the user's creator with the given handle.
func (d *DB) FindCreatorByHandle(ctx context.Context, userID, handle string) (model.Creator, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, user_id, handle, provider_user_id, active, requested_daily_count, created_at FROM creators WHERE user_id=? AND handle=?`,
		userID, handle)
	return scanCreator(row)
}

// ListActiveCreators returns the user's active creators, oldest first.
func (d *DB) ListActiveCreators(ctx context.Context, userID string) ([]model.Creator, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, user_id, handle, provider_user_id, active, requested_daily_count, created_at FROM creators WHERE user_id=? AND active=1 ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanCreator(s scanner) (model.Creator, error) {
	var c model.Creator
	var active int
	var created int64
	if err := s.Scan(&c.ID, &c.UserID, &c.Handle, &c.ProviderUserID, &active, &c.RequestedDailyCount, &created); err != nil {
		return model.Creator{}, err
	}
	c.Active = active != 0
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

// SetDailyLimit stores the user's daily tweet budget.
func (d *DB) SetDailyLimit(ctx context.Context, userID string, limit int) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO budgets(user_id, daily_limit) VALUES(?,?) ON CONFLICT(user_id) DO UPDATE SET daily_limit=excluded.daily_limit`,
		userID, limit)
	return err
}

// DailyLimit returns the user's daily budget; ok is false when none is stored.
func (d *DB) DailyLimit(ctx context.Context, userID string) (int, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT daily_limit FROM budgets WHERE user_id=?`, userID)
	var limit int
	switch err := row.Scan(&limit); err {
	case nil:
		return limit, true, nil
	case sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// UpsertTweets stores tweets for a creator. Re-ingesting a source_id updates
// the row in place rather than failing, so ingestion is idempotent.
func (d *DB) UpsertTweets(ctx context.Context, creatorID string, tweets []model.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tweets(creator_id, source_id, content, author_handle, published_at, metrics)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(creator_id, source_id) DO UPDATE SET
		  content=excluded.content,
		  author_handle=excluded.author_handle,
		  published_at=excluded.published_at,
		  metrics=excluded.metrics`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range tweets {
		var mstr *string
		if t.Metrics != nil {
			mb, _ := json.Marshal(t.Metrics)
			ms := string(mb)
			mstr = &ms
		}
		if _, err := stmt.ExecContext(ctx, creatorID, t.SourceID, t.Content, t.AuthorHandle, t.PublishedAt.UTC().UnixNano(), mstr); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QueryCreatorTweets returns up to limit of the creator's tweets published at
// or after since, most recent first.
func (d *DB) QueryCreatorTweets(ctx context.Context, creatorID string, since time.Time, limit int) ([]model.Tweet, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT source_id, creator_id, content, author_handle, published_at, metrics FROM tweets WHERE creator_id=? AND published_at>=? ORDER BY published_at DESC LIMIT ?`,
		creatorID, since.UTC().UnixNano(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tweet
	for rows.Next() {
		var t model.Tweet
		var pub int64
		var mstr sql.NullString
		if err := rows.Scan(&t.SourceID, &t.CreatorID, &t.Content, &t.AuthorHandle, &pub, &mstr); err != nil {
			return nil, err
		}
		t.PublishedAt = time.Unix(0, pub).UTC()
		if mstr.Valid && mstr.String != "" {
			_ = json.Unmarshal([]byte(mstr.String), &t.Metrics)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTweetsOlderThan removes all tweets published before cutoff, across
// all creators, and returns how many were deleted.
func (d *DB) DeleteTweetsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM tweets WHERE published_at<?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountCreatorTweets reports the stored tweet count for a creator.
func (d *DB) CountCreatorTweets(ctx context.Context, creatorID string) (int, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets WHERE creator_id=?`, creatorID)
	var n int
	err := row.Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
