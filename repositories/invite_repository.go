package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrInviteNotFound        = errors.New("invite not found")
	ErrInvitePendingConflict = errors.New("pending invite already exists for this user")
	ErrInviteClubInvalid     = errors.New("invite club reference invalid")
	ErrInviteUserInvalid     = errors.New("invite user reference invalid")
)

type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	GetByID(ctx context.Context, id int) (*models.Invite, error)
	GetPending(ctx context.Context, clubID, inviteeID int) (*models.Invite, error)
	ListPendingByInvitee(ctx context.Context, inviteeID int) ([]*models.Invite, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.InviteStatus) error
}

type postgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

func (r *postgresInviteRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresInviteRepository) Create(ctx context.Context, inv *models.Invite) error {
	query := `
		INSERT INTO invites (club_id, inviter_id, invitee_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		inv.ClubID, inv.InviterID, inv.InviteeID, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				// Частичный уникальный индекс: (club_id, invitee_id) WHERE status = 'pending'.
				if pqErr.Constraint == "invites_one_pending_per_user" {
					return ErrInvitePendingConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "invites_club_id_fkey":
					return ErrInviteClubInvalid
				case "invites_inviter_id_fkey", "invites_invitee_id_fkey":
					return ErrInviteUserInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresInviteRepository) GetByID(ctx context.Context, id int) (*models.Invite, error) {
	query := `
		SELECT id, club_id, inviter_id, invitee_id, status, created_at, updated_at
		FROM invites
		WHERE id = $1`

	inv := &models.Invite{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.ClubID, &inv.InviterID, &inv.InviteeID,
		&inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *postgresInviteRepository) GetPending(ctx context.Context, clubID, inviteeID int) (*models.Invite, error) {
	query := `
		SELECT id, club_id, inviter_id, invitee_id, status, created_at, updated_at
		FROM invites
		WHERE club_id = $1 AND invitee_id = $2 AND status = $3`

	inv := &models.Invite{}
	err := r.db.QueryRowContext(ctx, query, clubID, inviteeID, models.InvitePending).Scan(
		&inv.ID, &inv.ClubID, &inv.InviterID, &inv.InviteeID,
		&inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *postgresInviteRepository) ListPendingByInvitee(ctx context.Context, inviteeID int) ([]*models.Invite, error) {
	query := `
		SELECT i.id, i.club_id, i.inviter_id, i.invitee_id, i.status, i.created_at, i.updated_at,
		       c.id, c.name, c.description, c.visibility, c.owner_id, c.social_links, c.cover_key, c.created_at
		FROM invites i
		JOIN clubs c ON c.id = i.club_id
		WHERE i.invitee_id = $1 AND i.status = $2
		ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, inviteeID, models.InvitePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]*models.Invite, 0)
	for rows.Next() {
		var inv models.Invite
		var c models.Club
		if scanErr := rows.Scan(
			&inv.ID, &inv.ClubID, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
			&c.ID, &c.Name, &c.Description, &c.Visibility, &c.OwnerID, &c.SocialLinks, &c.CoverKey, &c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		inv.Club = &c
		invites = append(invites, &inv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *postgresInviteRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.InviteStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE invites SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInviteNotFound)
}
