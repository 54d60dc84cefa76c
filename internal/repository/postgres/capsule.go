package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ghostpost/capsule-server/internal/model"
)

var _ model.CapsuleStore = (*CapsuleRepository)(nil)

type CapsuleRepository struct {
	db *Connection
}

func NewCapsuleRepository(db *Connection) *CapsuleRepository {
	return &CapsuleRepository{
		db: db,
	}
}

const capsuleColumns = `id, owner_id, title, message, recipient, recipient_hash,
	attachment_key, attachment_kind, unlock_at, delivered, status, created_at, updated_at`

func scanCapsule(row pgx.Row) (model.Capsule, error) {
	var c model.Capsule
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Message, &c.Recipient, &c.RecipientHash,
		&c.AttachmentKey, &c.AttachmentKind, &c.UnlockAt, &c.Delivered, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *CapsuleRepository) Create(ctx context.Context, capsule model.Capsule) (model.Capsule, error) {
	query := `
		INSERT INTO capsules (id, owner_id, title, message, recipient, recipient_hash,
			attachment_key, attachment_kind, unlock_at, delivered, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + capsuleColumns

	saved, err := scanCapsule(r.db.QueryRow(ctx, query,
		capsule.ID, capsule.OwnerID, capsule.Title, capsule.Message,
		capsule.Recipient, capsule.RecipientHash,
		capsule.AttachmentKey, string(capsule.AttachmentKind),
		capsule.UnlockAt, capsule.Delivered, string(capsule.Status),
	))
	if err != nil {
		return model.Capsule{}, err
	}

	return saved, nil
}

func (r *CapsuleRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules WHERE id = $1`

	capsule, err := scanCapsule(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Capsule{}, model.ErrNotFound
		}
		return model.Capsule{}, err
	}

	return capsule, nil
}

func (r *CapsuleRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	return r.queryCapsules(ctx, query, ownerID)
}

func (r *CapsuleRepository) GetByRecipientHash(ctx context.Context, recipientHash string) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules
		WHERE recipient_hash = $1
		ORDER BY unlock_at ASC`

	return r.queryCapsules(ctx, query, recipientHash)
}

func (r *CapsuleRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM capsules WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CapsuleRepository) ListDueUndelivered(ctx context.Context, now time.Time) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules
		WHERE delivered = FALSE AND unlock_at <= $1
		ORDER BY unlock_at ASC`

	return r.queryCapsules(ctx, query, now)
}

func (r *CapsuleRepository) Update(ctx context.Context, id uuid.UUID, fields model.CapsuleUpdate) error {
	set := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Message != nil {
		add("message", *fields.Message)
	}
	if fields.Recipient != nil {
		add("recipient", *fields.Recipient)
	}
	if fields.RecipientHash != nil {
		add("recipient_hash", *fields.RecipientHash)
	}
	if fields.AttachmentKey != nil {
		add("attachment_key", *fields.AttachmentKey)
	}
	if fields.AttachmentKind != nil {
		add("attachment_kind", string(*fields.AttachmentKind))
	}
	if fields.UnlockAt != nil {
		add("unlock_at", *fields.UnlockAt)
	}

	query := fmt.Sprintf(`UPDATE capsules SET %s WHERE id = $1`, strings.Join(set, ", "))
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkDelivered flips the delivered flag only if it is still false, acting
// as the claim in the sweep's claim-then-send sequence. The returned bool
// reports whether this caller won the claim.
func (r *CapsuleRepository) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE capsules
		SET delivered = TRUE, status = 'delivered', updated_at = NOW()
		WHERE id = $1 AND delivered = FALSE`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// MarkUndelivered reverts a claim after a failed send so the capsule stays
// eligible for the next sweep.
func (r *CapsuleRepository) MarkUndelivered(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE capsules
		SET delivered = FALSE, status = 'pending', updated_at = NOW()
		WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *CapsuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM capsules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *CapsuleRepository) queryCapsules(ctx context.Context, query string, args ...any) ([]model.Capsule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capsules []model.Capsule
	for rows.Next() {
		capsule, err := scanCapsule(rows)
		if err != nil {
			return nil, err
		}
		capsules = append(capsules, capsule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return capsules, nil
}
