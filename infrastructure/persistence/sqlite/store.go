// Package sqlite persists items and bookmarklet tokens in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/pkg/auth"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// Store is an ItemStore and TokenStore backed by SQLite. The full item is kept
// as a JSON document next to the columns used for lookups and the version check.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ ports.ItemStore  = (*Store)(nil)
	_ ports.TokenStore = (*Store)(nil)
)

// Open opens or creates the database at path. Use ":memory:" in tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; an in-memory database also needs a single connection
	// or every pooled connection would see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		seq      INTEGER PRIMARY KEY AUTOINCREMENT,
		id       TEXT NOT NULL UNIQUE,
		user_id  TEXT NOT NULL,
		version  INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		data     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_user ON items(user_id, seq);

	CREATE TABLE IF NOT EXISTS api_tokens (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateItem stores a new item at version 1.
func (s *Store) CreateItem(ctx context.Context, item *entities.SavedItem) error {
	if item == nil || item.ID == "" || item.UserID == "" {
		return pkgerrors.NewValidationError("item id and user id are required")
	}

	stored := item.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return pkgerrors.NewInternalError("encode item").WithCause(err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (id, user_id, version, saved_at, data) VALUES (?, ?, ?, ?, ?)`,
		stored.ID, stored.UserID, stored.Version, stored.SavedAt, string(data),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError("item already exists")
		}
		return pkgerrors.NewDatabaseError("create item", err)
	}
	item.Version = 1
	return nil
}

func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*entities.SavedItem, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM items WHERE id = ? AND user_id = ?`, itemID, userID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("item")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get item", err)
	}
	return decodeItem(data)
}

// UpdateItem writes item only if the stored version still equals item.Version.
func (s *Store) UpdateItem(ctx context.Context, item *entities.SavedItem) error {
	expected := item.Version
	next := item.Clone()
	next.Version = expected + 1
	next.LastAccessed = utils.NowMillis()

	data, err := json.Marshal(next)
	if err != nil {
		return pkgerrors.NewInternalError("encode item").WithCause(err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET version = ?, data = ? WHERE id = ? AND user_id = ? AND version = ?`,
		next.Version, string(data), item.ID, item.UserID, expected,
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("update item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("update item", err)
	}
	if n == 0 {
		var actual int
		err := s.db.QueryRowContext(ctx,
			`SELECT version FROM items WHERE id = ? AND user_id = ?`, item.ID, item.UserID,
		).Scan(&actual)
		if errors.Is(err, sql.ErrNoRows) {
			return pkgerrors.NewNotFoundError("item")
		}
		if err != nil {
			return pkgerrors.NewDatabaseError("update item", err)
		}
		return pkgerrors.NewConflictError("item was modified concurrently").
			WithDetails(map[string]interface{}{"expected": expected, "actual": actual})
	}

	item.Version = next.Version
	item.LastAccessed = next.LastAccessed
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, userID, itemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return pkgerrors.NewDatabaseError("delete item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.NewNotFoundError("item")
	}
	return nil
}

func (s *Store) GetItemsByUser(ctx context.Context, userID string) ([]*entities.SavedItem, error) {
	return s.query(ctx, `SELECT data FROM items WHERE user_id = ? ORDER BY seq`, userID)
}

// SearchItems returns the user's items containing every word of query,
// newest first.
func (s *Store) SearchItems(ctx context.Context, userID, query string) ([]*entities.SavedItem, error) {
	items, err := s.query(ctx, `SELECT data FROM items WHERE user_id = ? ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := []*entities.SavedItem{}
	for _, item := range items {
		if item.MatchesQuery(query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) GetAllCollections(ctx context.Context) ([]entities.Collection, error) {
	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	return entities.AggregateCollections(items), nil
}

func (s *Store) GetAllConcepts(ctx context.Context) ([]entities.Concept, error) {
	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	return entities.AggregateConcepts(items), nil
}

func (s *Store) allItems(ctx context.Context) ([]*entities.SavedItem, error) {
	return s.query(ctx, `SELECT data FROM items ORDER BY user_id, seq`)
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]*entities.SavedItem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list items", err)
	}
	defer rows.Close()

	out := []*entities.SavedItem{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan item", err)
		}
		item, err := decodeItem(data)
		if err != nil {
			s.logger.Warn("Skipping undecodable item row", zap.Error(err))
			continue
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list items", err)
	}
	return out, nil
}

// IssueToken creates a new bookmarklet token for userID.
func (s *Store) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", pkgerrors.NewValidationError("user id is required")
	}
	token := auth.NewAPIToken()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, utils.NowMillis(),
	)
	if err != nil {
		return "", pkgerrors.NewDatabaseError("issue token", err)
	}
	return token, nil
}

// ResolveToken maps a token back to its user.
func (s *Store) ResolveToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM api_tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", pkgerrors.NewUnauthorizedError("invalid token")
	}
	if err != nil {
		return "", pkgerrors.NewDatabaseError("resolve token", err)
	}
	return userID, nil
}

func decodeItem(data string) (*entities.SavedItem, error) {
	item := &entities.SavedItem{}
	if err := json.Unmarshal([]byte(data), item); err != nil {
		return nil, pkgerrors.NewDatabaseError("decode item", err)
	}
	return item, nil
}
