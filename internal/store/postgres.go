package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a pgx connection pool. It issues the
// same parameterized statements as the REST API so both surfaces observe one
// schema; the schema itself is owned and migrated elsewhere.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) FindActiveUserByID(ctx context.Context, id int64) (UserSummary, error) {
	var user UserSummary
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, role FROM users WHERE id = $1 AND is_active = true`,
		id,
	).Scan(&user.ID, &user.Name, &user.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserSummary{}, ErrNotFound
		}
		return UserSummary{}, fmt.Errorf("find active user %d: %w", id, err)
	}
	return user, nil
}

func (p *Postgres) IsMember(ctx context.Context, serverID, userID int64) (bool, error) {
	var memberID int64
	err := p.pool.QueryRow(ctx,
		`SELECT id FROM server_members WHERE server_id = $1 AND user_id = $2`,
		serverID, userID,
	).Scan(&memberID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("membership check server=%d user=%d: %w", serverID, userID, err)
	}
	return true, nil
}

func (p *Postgres) InsertMessage(ctx context.Context, params InsertMessageParams) (MessageRecord, error) {
	if params.MessageType == "" {
		params.MessageType = MessageTypeText
	}

	var fileURL *string
	if params.FileURL != "" {
		fileURL = &params.FileURL
	}

	var record MessageRecord
	err := p.pool.QueryRow(ctx,
		`INSERT INTO messages (server_id, user_id, content, message_type, file_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		params.ServerID, params.UserID, params.Content, params.MessageType, fileURL,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("insert message: %w", err)
	}
	return record, nil
}
