/*
Package postgres implements the persistence gateway (store.Store) on top of
PostgreSQL via pgx. Channel member, mute, and ban sets are stored as text[]
columns so a channel record round-trips as a single row.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/store"
)

// Gateway is the PostgreSQL-backed store.Store implementation.
type Gateway struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool in a Gateway.
func New(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() {
	g.pool.Close()
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// CreateUser inserts a new account record.
func (g *Gateway) CreateUser(ctx context.Context, username, passwordHash string) (store.User, error) {
	var u store.User
	err := g.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING username, password_hash, created_at`,
		username, passwordHash,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return store.User{}, store.ErrDuplicate
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByUsername fetches an account record by its username.
func (g *Gateway) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	var u store.User
	err := g.pool.QueryRow(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// InsertChannel persists a newly created channel record.
func (g *Gateway) InsertChannel(ctx context.Context, ch store.Channel) error {
	_, err := g.pool.Exec(ctx,
		`INSERT INTO channels (id, name, creator, password, members, muted_users, banned_users, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ch.ID, ch.Name, ch.Creator, ch.Password, ch.Members, ch.MutedUsers, ch.BannedUsers, ch.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// GetChannel fetches a channel record by id.
func (g *Gateway) GetChannel(ctx context.Context, id string) (store.Channel, error) {
	ch, err := scanChannel(g.pool.QueryRow(ctx,
		`SELECT id, name, creator, password, members, muted_users, banned_users, created_at
		 FROM channels WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Channel{}, store.ErrNotFound
		}
		return store.Channel{}, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

// ListChannels returns every channel, newest first.
func (g *Gateway) ListChannels(ctx context.Context) ([]store.Channel, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT id, name, creator, password, members, muted_users, banned_users, created_at
		 FROM channels ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

// ListChannelsByMember returns every channel whose member set contains username, newest first.
func (g *Gateway) ListChannelsByMember(ctx context.Context, username string) ([]store.Channel, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT id, name, creator, password, members, muted_users, banned_users, created_at
		 FROM channels WHERE $1 = ANY(members) ORDER BY created_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("list channels by member: %w", err)
	}
	defer rows.Close()

	return collectChannels(rows)
}

// UpdateChannel overwrites the full channel record.
func (g *Gateway) UpdateChannel(ctx context.Context, ch store.Channel) error {
	tag, err := g.pool.Exec(ctx,
		`UPDATE channels SET name = $2, password = $3, members = $4, muted_users = $5, banned_users = $6
		 WHERE id = $1`,
		ch.ID, ch.Name, ch.Password, ch.Members, ch.MutedUsers, ch.BannedUsers,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteChannel removes a channel record permanently.
func (g *Gateway) DeleteChannel(ctx context.Context, id string) error {
	tag, err := g.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InsertMessage persists a chat message.
func (g *Gateway) InsertMessage(ctx context.Context, msg store.Message) error {
	_, err := g.pool.Exec(ctx,
		`INSERT INTO messages (id, channel_id, username, content, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ChannelID, msg.Username, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns the channel's messages in chronological order.
func (g *Gateway) ListMessages(ctx context.Context, channelID string) ([]store.Message, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT id, channel_id, username, content, ts
		 FROM messages WHERE channel_id = $1 ORDER BY ts ASC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Username, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessages removes every message persisted under channelID.
func (g *Gateway) DeleteMessages(ctx context.Context, channelID string) error {
	_, err := g.pool.Exec(ctx, `DELETE FROM messages WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (store.Channel, error) {
	var ch store.Channel
	err := row.Scan(&ch.ID, &ch.Name, &ch.Creator, &ch.Password,
		&ch.Members, &ch.MutedUsers, &ch.BannedUsers, &ch.CreatedAt)
	return ch, err
}

func collectChannels(rows pgx.Rows) ([]store.Channel, error) {
	var channels []store.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
