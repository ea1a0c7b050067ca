package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-core/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps messages in PostgreSQL and reads user briefs from the
// account tables.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range postgresSchema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Save(ctx context.Context, msg *models.Message) error {
	sql, args := buildInsert(postgresDialect, msg)
	_, err := s.pool.Exec(ctx, sql, args...)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	sql, args := buildFind(postgresDialect, id)
	msg, err := scanPostgres(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, id string, patch models.MessagePatch) (bool, error) {
	sql, args := buildUpdateOne(postgresDialect, id, patch, s.now())
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateManyMatching(ctx context.Context, filter models.MessageFilter, patch models.MessagePatch) ([]models.MessageRef, error) {
	sql, args := buildUpdateMany(postgresDialect, filter, patch, s.now())
	rows, err := s.pool.Query(ctx, sql, args...)
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

func (s *PostgresStore) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	sql, args := buildList(postgresDialect, filter)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) CountUnread(ctx context.Context, filter models.MessageFilter) (int64, error) {
	filter.OnlyUnread = true
	sql, args := buildCount(postgresDialect, filter)
	var n int64
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

// BriefOf prefers the user's full name and their most recent photo.
func (s *PostgresStore) BriefOf(ctx context.Context, userID string) (*models.UserBrief, error) {
	query := `
		SELECT u.id::text,
			COALESCE(NULLIF(TRIM(CONCAT_WS(' ', u.first_name, u.last_name)), ''), u.username),
			COALESCE((SELECT p.url FROM photos p WHERE p.user_id = u.id ORDER BY p.created_at DESC LIMIT 1), '')
		FROM users u
		WHERE u.id::text = $1
	`
	var b models.UserBrief
	err := s.pool.QueryRow(ctx, query, userID).Scan(&b.ID, &b.DisplayName, &b.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgres(row rowScanner) (models.Message, error) {
	var raw rawMessage
	if err := row.Scan(raw.dest(&raw.msg.CreatedAt, &raw.msg.UpdatedAt)...); err != nil {
		return models.Message{}, err
	}
	return raw.finish(), nil
}
