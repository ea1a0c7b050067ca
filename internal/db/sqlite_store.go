package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-core/internal/models"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// SQLiteStore is the embedded backend used for development and tests. It
// owns a small users table of its own.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// UserRow seeds the embedded users table.
type UserRow struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	AvatarURL string
}

// NewSQLiteStore opens the database at path. ":memory:" gives a private
// in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "chat.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases and write ordering consistent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate runs the schema creation statements.
func (s *SQLiteStore) Migrate(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range sqliteSchema {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u UserRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, avatar_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			avatar_url = excluded.avatar_url`,
		u.ID, u.Username, u.FirstName, u.LastName, u.AvatarURL)
	return err
}

func (s *SQLiteStore) BriefOf(ctx context.Context, userID string) (*models.UserBrief, error) {
	var b models.UserBrief
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(NULLIF(TRIM(first_name || ' ' || last_name), ''), username), avatar_url
		FROM users WHERE id = ?`, userID).Scan(&b.ID, &b.DisplayName, &b.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) Save(ctx context.Context, msg *models.Message) error {
	query, args := buildInsert(sqliteDialect, msg)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	query, args := buildFind(sqliteDialect, id)
	msg, err := scanSQLite(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, id string, patch models.MessagePatch) (bool, error) {
	query, args := buildUpdateOne(sqliteDialect, id, patch, s.now())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) UpdateManyMatching(ctx context.Context, filter models.MessageFilter, patch models.MessagePatch) ([]models.MessageRef, error) {
	query, args := buildUpdateMany(sqliteDialect, filter, patch, s.now())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		var ref models.MessageRef
		if err := rows.Scan(&ref.ID, &ref.SenderID, &ref.RoomID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	query, args := buildList(sqliteDialect, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) CountUnread(ctx context.Context, filter models.MessageFilter) (int64, error) {
	filter.OnlyUnread = true
	query, args := buildCount(sqliteDialect, filter)
	var n int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func scanSQLite(row rowScanner) (models.Message, error) {
	var raw rawMessage
	var created, updated int64
	if err := row.Scan(raw.dest(&created, &updated)...); err != nil {
		return models.Message{}, err
	}
	raw.msg.CreatedAt = time.Unix(0, created).UTC()
	raw.msg.UpdatedAt = time.Unix(0, updated).UTC()
	return raw.finish(), nil
}
