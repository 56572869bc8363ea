package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrClubNotFound     = errors.New("club not found")
	ErrClubOwnerInvalid = errors.New("club owner reference invalid")
)

type ListClubsFilter struct {
	Visibility *models.ClubVisibility
	OwnerID    *int
	Limit      int
	Offset     int
}

type ClubRepository interface {
	Create(ctx context.Context, exec SQLExecutor, club *models.Club) error
	GetByID(ctx context.Context, id int) (*models.Club, error)
	List(ctx context.Context, filter ListClubsFilter) ([]models.Club, error)
	Update(ctx context.Context, club *models.Club) error
	UpdateCoverKey(ctx context.Context, clubID int, coverKey *string) error
	// Delete каскадно удаляет членов, раунды и их дочерние записи (FK ON DELETE CASCADE).
	Delete(ctx context.Context, id int) error
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

func (r *postgresClubRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresClubRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Club) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO clubs (name, description, visibility, owner_id, social_links)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		c.Name, c.Description, c.Visibility, c.OwnerID, c.SocialLinks,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "clubs_owner_id_fkey" {
				return ErrClubOwnerInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresClubRepository) GetByID(ctx context.Context, id int) (*models.Club, error) {
	query := `
		SELECT id, name, description, visibility, owner_id, social_links, cover_key, created_at
		FROM clubs
		WHERE id = $1`

	c := &models.Club{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Visibility, &c.OwnerID,
		&c.SocialLinks, &c.CoverKey, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresClubRepository) List(ctx context.Context, filter ListClubsFilter) ([]models.Club, error) {
	query := `
		SELECT id, name, description, visibility, owner_id, social_links, cover_key, created_at
		FROM clubs
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Visibility != nil {
		query += fmt.Sprintf(" AND visibility = $%d", argID)
		args = append(args, *filter.Visibility)
		argID++
	}
	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", argID)
		args = append(args, *filter.OwnerID)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := make([]models.Club, 0)
	for rows.Next() {
		var c models.Club
		if scanErr := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Visibility, &c.OwnerID,
			&c.SocialLinks, &c.CoverKey, &c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		clubs = append(clubs, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *postgresClubRepository) Update(ctx context.Context, c *models.Club) error {
	query := `
		UPDATE clubs SET
			name = $1,
			description = $2,
			visibility = $3,
			social_links = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Description, c.Visibility, c.SocialLinks, c.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *postgresClubRepository) UpdateCoverKey(ctx context.Context, clubID int, coverKey *string) error {
	query := `UPDATE clubs SET cover_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, coverKey, clubID)
	if err != nil {
		return fmt.Errorf("failed to update club cover key: %w", err)
	}
	return checkAffectedRows(result, ErrClubNotFound)
}

func (r *postgresClubRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM clubs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClubNotFound)
}
