package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rgalymov/gameclub-backend/models"
)

var ErrGameNotFound = errors.New("game not found")

type ListGamesFilter struct {
	Search string
	Limit  int
	Offset int
}

type GameRepository interface {
	GetByID(ctx context.Context, id int) (*models.Game, error)
	Exists(ctx context.Context, id int) (bool, error)
	List(ctx context.Context, filter ListGamesFilter) ([]models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT id, title, cover_key, created_at FROM games WHERE id = $1`

	g := &models.Game{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Title, &g.CoverKey, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *postgresGameRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresGameRepository) List(ctx context.Context, filter ListGamesFilter) ([]models.Game, error) {
	query := `SELECT id, title, cover_key, created_at FROM games WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Search != "" {
		query += fmt.Sprintf(" AND title ILIKE $%d", argID)
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	query += " ORDER BY title ASC"

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

	games := make([]models.Game, 0)
	for rows.Next() {
		var g models.Game
		if scanErr := rows.Scan(&g.ID, &g.Title, &g.CoverKey, &g.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		games = append(games, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}
