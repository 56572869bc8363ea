package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrVoteNotFound          = errors.New("vote not found")
	ErrVoteConflict          = errors.New("vote already exists for this user and round")
	ErrVoteNominationInvalid = errors.New("vote nomination reference invalid")
)

type VoteRepository interface {
	Create(ctx context.Context, vote *models.Vote) error
	GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Vote, error)
	// UpdateNomination меняет цель существующего голоса (переголосование).
	UpdateNomination(ctx context.Context, voteID, nominationID int) error
	ListByRound(ctx context.Context, roundID int) ([]models.Vote, error)
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

func (r *postgresVoteRepository) Create(ctx context.Context, v *models.Vote) error {
	query := `
		INSERT INTO votes (round_id, user_id, nomination_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, v.RoundID, v.UserID, v.NominationID).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "votes_round_id_user_id_key" {
					return ErrVoteConflict
				}
			case "23503":
				if pqErr.Constraint == "votes_nomination_id_fkey" {
					return ErrVoteNominationInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresVoteRepository) GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Vote, error) {
	query := `
		SELECT id, round_id, user_id, nomination_id, created_at, updated_at
		FROM votes
		WHERE round_id = $1 AND user_id = $2`

	v := &models.Vote{}
	err := r.db.QueryRowContext(ctx, query, roundID, userID).Scan(
		&v.ID, &v.RoundID, &v.UserID, &v.NominationID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVoteRepository) UpdateNomination(ctx context.Context, voteID, nominationID int) error {
	query := `UPDATE votes SET nomination_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, nominationID, voteID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "votes_nomination_id_fkey" {
				return ErrVoteNominationInvalid
			}
		}
		return err
	}
	return checkAffectedRows(result, ErrVoteNotFound)
}

func (r *postgresVoteRepository) ListByRound(ctx context.Context, roundID int) ([]models.Vote, error) {
	query := `
		SELECT id, round_id, user_id, nomination_id, created_at, updated_at
		FROM votes
		WHERE round_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		var v models.Vote
		if scanErr := rows.Scan(
			&v.ID, &v.RoundID, &v.UserID, &v.NominationID, &v.CreatedAt, &v.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		votes = append(votes, v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}
