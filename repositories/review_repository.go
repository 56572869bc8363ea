package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rgalymov/gameclub-backend/models"
)

var (
	ErrReviewNotFound     = errors.New("review not found")
	ErrReviewConflict     = errors.New("review already exists for this user and round")
	ErrReviewRoundInvalid = errors.New("review round reference invalid")
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Review, error)
	// Update перезаписывает score/comment и обновляет submitted_at.
	Update(ctx context.Context, review *models.Review) error
	ListByRound(ctx context.Context, roundID int) ([]models.Review, error)
}

type postgresReviewRepository struct {
	db *sql.DB
}

func NewPostgresReviewRepository(db *sql.DB) ReviewRepository {
	return &postgresReviewRepository{db: db}
}

func (r *postgresReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	query := `
		INSERT INTO reviews (round_id, user_id, score, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submitted_at`

	err := r.db.QueryRowContext(ctx, query, rv.RoundID, rv.UserID, rv.Score, rv.Comment).
		Scan(&rv.ID, &rv.SubmittedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "reviews_round_id_user_id_key" {
					return ErrReviewConflict
				}
			case "23503":
				if pqErr.Constraint == "reviews_round_id_fkey" {
					return ErrReviewRoundInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresReviewRepository) GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Review, error) {
	query := `
		SELECT id, round_id, user_id, score, comment, submitted_at
		FROM reviews
		WHERE round_id = $1 AND user_id = $2`

	rv := &models.Review{}
	err := r.db.QueryRowContext(ctx, query, roundID, userID).Scan(
		&rv.ID, &rv.RoundID, &rv.UserID, &rv.Score, &rv.Comment, &rv.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return rv, nil
}

func (r *postgresReviewRepository) Update(ctx context.Context, rv *models.Review) error {
	query := `
		UPDATE reviews
		SET score = $1, comment = $2, submitted_at = NOW()
		WHERE id = $3
		RETURNING submitted_at`

	err := r.db.QueryRowContext(ctx, query, rv.Score, rv.Comment, rv.ID).Scan(&rv.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		return err
	}
	return nil
}

func (r *postgresReviewRepository) ListByRound(ctx context.Context, roundID int) ([]models.Review, error) {
	query := `
		SELECT r.id, r.round_id, r.user_id, r.score, r.comment, r.submitted_at,
		       u.id, u.nickname, u.email, u.avatar_key, u.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.round_id = $1
		ORDER BY r.submitted_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var rv models.Review
		var u models.User
		if scanErr := rows.Scan(
			&rv.ID, &rv.RoundID, &rv.UserID, &rv.Score, &rv.Comment, &rv.SubmittedAt,
			&u.ID, &u.Nickname, &u.Email, &u.AvatarKey, &u.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		rv.User = &u
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
