package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure channelRepo implements repository.ChannelRepository
var _ repository.ChannelRepository = (*channelRepo)(nil)

type channelRepo struct {
	db querier
}

func NewChannelRepo(pool *pgxpool.Pool) *channelRepo {
	return &channelRepo{db: pool}
}

func (r *channelRepo) Save(ctx context.Context, ch *model.Channel) error {
	if ch == nil || ch.ID == 0 {
		return domain.ErrInvalidArgument
	}
	plans, err := marshalPlans(ch.Plans)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO channels (id, name, admin_id, plans, created_at, updated_at)
VALUES ($1, $2, $3, $4::jsonb, NOW(), NOW())
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name, admin_id = EXCLUDED.admin_id, updated_at = NOW();`
	if _, err := r.db.Exec(ctx, q, ch.ID, ch.Name, ch.AdminID, plans); err != nil {
		return fmt.Errorf("%w: save channel: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

// ReplacePlans is a single UPDATE, so readers see either the old or the new catalog.
func (r *channelRepo) ReplacePlans(ctx context.Context, channelID int64, plans model.Catalog) error {
	raw, err := marshalPlans(plans)
	if err != nil {
		return err
	}
	const q = `UPDATE channels SET plans = $2::jsonb, updated_at = NOW() WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, channelID, raw)
	if err != nil {
		return fmt.Errorf("%w: replace plans: %v", domain.ErrOperationFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepo) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	const q = `
SELECT id, name, admin_id, plans, created_at, updated_at
  FROM channels
 WHERE id = $1;`
	ch, err := scanChannel(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return ch, nil
}

func (r *channelRepo) ListByAdmin(ctx context.Context, adminID int64) ([]*model.Channel, error) {
	const q = `
SELECT id, name, admin_id, plans, created_at, updated_at
  FROM channels
 WHERE admin_id = $1
 ORDER BY created_at ASC;`
	rows, err := r.db.Query(ctx, q, adminID)
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %v", domain.ErrOperationFailed, err)
	}
	defer rows.Close()

	var out []*model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanChannel(row pgx.Row) (*model.Channel, error) {
	var (
		ch  model.Channel
		raw []byte
	)
	if err := row.Scan(&ch.ID, &ch.Name, &ch.AdminID, &raw, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ch.Plans); err != nil {
			return nil, fmt.Errorf("%w: plans: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &ch, nil
}

func marshalPlans(plans model.Catalog) (string, error) {
	if plans == nil {
		plans = model.Catalog{}
	}
	b, err := json.Marshal(plans)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
