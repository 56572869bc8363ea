package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundActiveConflict — сработал частичный уникальный индекс
	// rounds_one_active_per_club (club_id WHERE status <> 'completed').
	ErrRoundActiveConflict = errors.New("club already has an active round")
	ErrRoundClubInvalid    = errors.New("round club reference invalid")
	ErrRoundGameInvalid    = errors.New("round game reference invalid")
)

type RoundRepository interface {
	// Create назначает номер раунда внутри INSERT: MAX(number)+1 по клубу.
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, id int) (*models.Round, error)
	GetActiveByClub(ctx context.Context, clubID int) (*models.Round, error)
	ListByClub(ctx context.Context, clubID int) ([]models.Round, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error
	SetGame(ctx context.Context, exec SQLExecutor, id int, gameID int) error
	SetCompletedAt(ctx context.Context, exec SQLExecutor, id int, completedAt time.Time) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, rd *models.Round) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rounds (
			club_id, number, status,
			nominating_deadline, voting_deadline, playing_deadline, reviewing_deadline
		) VALUES (
			$1,
			(SELECT COALESCE(MAX(number), 0) + 1 FROM rounds WHERE club_id = $1),
			$2, $3, $4, $5, $6
		)
		RETURNING id, number, created_at`

	err := executor.QueryRowContext(ctx, query,
		rd.ClubID, rd.Status,
		rd.NominatingDeadline, rd.VotingDeadline, rd.PlayingDeadline, rd.ReviewingDeadline,
	).Scan(&rd.ID, &rd.Number, &rd.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "rounds_one_active_per_club" {
					return ErrRoundActiveConflict
				}
			case "23503":
				if pqErr.Constraint == "rounds_club_id_fkey" {
					return ErrRoundClubInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresRoundRepository) scanRound(row *sql.Row) (*models.Round, error) {
	rd := &models.Round{}
	err := row.Scan(
		&rd.ID, &rd.ClubID, &rd.Number, &rd.Status, &rd.GameID,
		&rd.NominatingDeadline, &rd.VotingDeadline, &rd.PlayingDeadline, &rd.ReviewingDeadline,
		&rd.CreatedAt, &rd.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return rd, nil
}

const roundColumns = `
		id, club_id, number, status, game_id,
		nominating_deadline, voting_deadline, playing_deadline, reviewing_deadline,
		created_at, completed_at`

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	query := `SELECT` + roundColumns + ` FROM rounds WHERE id = $1`
	return r.scanRound(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) GetActiveByClub(ctx context.Context, clubID int) (*models.Round, error) {
	query := `SELECT` + roundColumns + ` FROM rounds WHERE club_id = $1 AND status <> $2`
	return r.scanRound(r.db.QueryRowContext(ctx, query, clubID, models.RoundCompleted))
}

func (r *postgresRoundRepository) ListByClub(ctx context.Context, clubID int) ([]models.Round, error) {
	query := `SELECT` + roundColumns + ` FROM rounds WHERE club_id = $1 ORDER BY number DESC`

	rows, err := r.db.QueryContext(ctx, query, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		var rd models.Round
		if scanErr := rows.Scan(
			&rd.ID, &rd.ClubID, &rd.Number, &rd.Status, &rd.GameID,
			&rd.NominatingDeadline, &rd.VotingDeadline, &rd.PlayingDeadline, &rd.ReviewingDeadline,
			&rd.CreatedAt, &rd.CompletedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, rd)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresRoundRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE rounds SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) SetGame(ctx context.Context, exec SQLExecutor, id int, gameID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE rounds SET game_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, gameID, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "rounds_game_id_fkey" {
				return ErrRoundGameInvalid
			}
		}
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) SetCompletedAt(ctx context.Context, exec SQLExecutor, id int, completedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE rounds SET completed_at = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, completedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}
