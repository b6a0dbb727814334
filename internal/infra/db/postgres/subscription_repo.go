package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	db querier
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{db: pool}
}

// Upsert writes the expiry for (user, channel) in one statement; the last write wins.
func (r *subscriptionRepo) Upsert(ctx context.Context, s model.Subscription) error {
	if s.UserID <= 0 || s.ChannelID == 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (user_id, channel_id, expires_at, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id, channel_id) DO UPDATE SET
  expires_at = EXCLUDED.expires_at, updated_at = NOW();`
	if _, err := r.db.Exec(ctx, q, s.UserID, s.ChannelID, s.ExpiresAt.UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return domain.ErrChannelNotFound
		}
		return fmt.Errorf("%w: upsert subscription: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *subscriptionRepo) Find(ctx context.Context, userID, channelID int64) (*model.Subscription, error) {
	const q = `
SELECT user_id, channel_id, expires_at
  FROM subscriptions
 WHERE user_id = $1 AND channel_id = $2;`
	var s model.Subscription
	err := r.db.QueryRow(ctx, q, userID, channelID).Scan(&s.UserID, &s.ChannelID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Subscription, error) {
	const q = `
SELECT user_id, channel_id, expires_at
  FROM subscriptions
 WHERE user_id = $1
 ORDER BY expires_at ASC;`
	return r.list(ctx, q, userID)
}

// ListExpired pages with a row-value comparison on (expires_at, user_id, channel_id),
// so rows left behind by a failed revoke never hide the ones after them.
func (r *subscriptionRepo) ListExpired(ctx context.Context, now time.Time, after *repository.ExpiredCursor, limit int) ([]model.Subscription, error) {
	// LIMIT NULL means no limit in Postgres.
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	if after == nil {
		const q = `
SELECT user_id, channel_id, expires_at
  FROM subscriptions
 WHERE expires_at <= $1
 ORDER BY expires_at, user_id, channel_id
 LIMIT $2;`
		return r.list(ctx, q, now.UTC(), lim)
	}
	const q = `
SELECT user_id, channel_id, expires_at
  FROM subscriptions
 WHERE expires_at <= $1
   AND (expires_at, user_id, channel_id) > ($2, $3, $4)
 ORDER BY expires_at, user_id, channel_id
 LIMIT $5;`
	return r.list(ctx, q, now.UTC(), after.ExpiresAt.UTC(), after.UserID, after.ChannelID, lim)
}

// Delete removes the row only if expires_at is unchanged since it was read.
func (r *subscriptionRepo) Delete(ctx context.Context, userID, channelID int64, expiresAt time.Time) (bool, error) {
	const q = `DELETE FROM subscriptions WHERE user_id = $1 AND channel_id = $2 AND expires_at = $3;`
	tag, err := r.db.Exec(ctx, q, userID, channelID, expiresAt.UTC())
	if err != nil {
		return false, fmt.Errorf("%w: delete subscription: %v", domain.ErrOperationFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM subscriptions WHERE expires_at > $1;`
	var n int
	if err := r.db.QueryRow(ctx, q, now.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return n, nil
}

func (r *subscriptionRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Subscription, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.UserID, &s.ChannelID, &s.ExpiresAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
