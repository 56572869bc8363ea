package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrMemberNotFound    = errors.New("club member not found")
	ErrMemberConflict    = errors.New("user is already a member of this club")
	ErrMemberClubInvalid = errors.New("member club reference invalid")
	ErrMemberUserInvalid = errors.New("member user reference invalid")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.Member) error
	// CreateIfAbsent вставляет члена клуба, молча пропуская дубликат
	// (ON CONFLICT DO NOTHING) — безопасно внутри транзакции при гонке
	// двойного accept. Возвращает true, если строка была вставлена.
	CreateIfAbsent(ctx context.Context, exec SQLExecutor, member *models.Member) (bool, error)
	GetByClubAndUser(ctx context.Context, clubID, userID int) (*models.Member, error)
	ListByClub(ctx context.Context, clubID int) ([]*models.Member, error)
	UpdateRole(ctx context.Context, exec SQLExecutor, clubID, userID int, role models.MemberRole) error
	Delete(ctx context.Context, clubID, userID int) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Member) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO members (club_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := executor.QueryRowContext(ctx, query, m.ClubID, m.UserID, m.Role).
		Scan(&m.ID, &m.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "members_club_id_user_id_key" {
					return ErrMemberConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "members_club_id_fkey":
					return ErrMemberClubInvalid
				case "members_user_id_fkey":
					return ErrMemberUserInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresMemberRepository) CreateIfAbsent(ctx context.Context, exec SQLExecutor, m *models.Member) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO members (club_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (club_id, user_id) DO NOTHING
		RETURNING id, joined_at`

	err := executor.QueryRowContext(ctx, query, m.ClubID, m.UserID, m.Role).
		Scan(&m.ID, &m.JoinedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil // уже член клуба
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "members_club_id_fkey":
				return false, ErrMemberClubInvalid
			case "members_user_id_fkey":
				return false, ErrMemberUserInvalid
			}
		}
		return false, err
	}
	return true, nil
}

func (r *postgresMemberRepository) GetByClubAndUser(ctx context.Context, clubID, userID int) (*models.Member, error) {
	query := `
		SELECT id, club_id, user_id, role, joined_at
		FROM members
		WHERE club_id = $1 AND user_id = $2`

	m := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, clubID, userID).Scan(
		&m.ID, &m.ClubID, &m.UserID, &m.Role, &m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMemberRepository) ListByClub(ctx context.Context, clubID int) ([]*models.Member, error) {
	query := `
		SELECT m.id, m.club_id, m.user_id, m.role, m.joined_at,
		       u.id, u.nickname, u.email, u.avatar_key, u.created_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.club_id = $1
		ORDER BY m.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		var m models.Member
		var u models.User
		if scanErr := rows.Scan(
			&m.ID, &m.ClubID, &m.UserID, &m.Role, &m.JoinedAt,
			&u.ID, &u.Nickname, &u.Email, &u.AvatarKey, &u.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		m.User = &u
		members = append(members, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresMemberRepository) UpdateRole(ctx context.Context, exec SQLExecutor, clubID, userID int, role models.MemberRole) error {
	executor := r.getExecutor(exec)
	query := `UPDATE members SET role = $1 WHERE club_id = $2 AND user_id = $3`
	result, err := executor.ExecContext(ctx, query, role, clubID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}

func (r *postgresMemberRepository) Delete(ctx context.Context, clubID, userID int) error {
	query := `DELETE FROM members WHERE club_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, clubID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}
