package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrNominationNotFound     = errors.New("nomination not found")
	ErrNominationConflict     = errors.New("game is already nominated in this round")
	ErrNominationRoundInvalid = errors.New("nomination round reference invalid")
	ErrNominationGameInvalid  = errors.New("nomination game reference invalid")
)

type NominationRepository interface {
	Create(ctx context.Context, nomination *models.Nomination) error
	GetByID(ctx context.Context, id int) (*models.Nomination, error)
	// ListByRound возвращает номинации с живым подсчётом голосов,
	// отсортированные по created_at ASC (порядок важен для тай-брейка).
	ListByRound(ctx context.Context, roundID int) ([]*models.Nomination, error)
	CountByRound(ctx context.Context, roundID int) (int, error)
}

type postgresNominationRepository struct {
	db *sql.DB
}

func NewPostgresNominationRepository(db *sql.DB) NominationRepository {
	return &postgresNominationRepository{db: db}
}

func (r *postgresNominationRepository) Create(ctx context.Context, n *models.Nomination) error {
	query := `
		INSERT INTO nominations (round_id, game_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, n.RoundID, n.GameID, n.UserID).
		Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "nominations_round_id_game_id_key" {
					return ErrNominationConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "nominations_round_id_fkey":
					return ErrNominationRoundInvalid
				case "nominations_game_id_fkey":
					return ErrNominationGameInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresNominationRepository) GetByID(ctx context.Context, id int) (*models.Nomination, error) {
	query := `
		SELECT id, round_id, game_id, user_id, created_at
		FROM nominations
		WHERE id = $1`

	n := &models.Nomination{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.RoundID, &n.GameID, &n.UserID, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNominationNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *postgresNominationRepository) ListByRound(ctx context.Context, roundID int) ([]*models.Nomination, error) {
	// Подсчёт всегда по строкам votes, без кэшируемого счётчика.
	query := `
		SELECT n.id, n.round_id, n.game_id, n.user_id, n.created_at,
		       g.id, g.title, g.cover_key, g.created_at,
		       COUNT(v.id) AS vote_count
		FROM nominations n
		JOIN games g ON g.id = n.game_id
		LEFT JOIN votes v ON v.nomination_id = n.id
		WHERE n.round_id = $1
		GROUP BY n.id, g.id
		ORDER BY n.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nominations := make([]*models.Nomination, 0)
	for rows.Next() {
		var n models.Nomination
		var g models.Game
		if scanErr := rows.Scan(
			&n.ID, &n.RoundID, &n.GameID, &n.UserID, &n.CreatedAt,
			&g.ID, &g.Title, &g.CoverKey, &g.CreatedAt,
			&n.VoteCount,
		); scanErr != nil {
			return nil, scanErr
		}
		n.Game = &g
		nominations = append(nominations, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return nominations, nil
}

func (r *postgresNominationRepository) CountByRound(ctx context.Context, roundID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nominations WHERE round_id = $1`, roundID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
