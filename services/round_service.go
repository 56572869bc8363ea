package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
)

type CreateRoundInput struct {
	NominatingDeadline *time.Time `json:"nominating_deadline,omitempty"`
	VotingDeadline     *time.Time `json:"voting_deadline,omitempty"`
	PlayingDeadline    *time.Time `json:"playing_deadline,omitempty"`
	ReviewingDeadline  *time.Time `json:"reviewing_deadline,omitempty"`
}

type RoundService interface {
	CreateRound(ctx context.Context, clubID, currentUserID int, input CreateRoundInput) (*models.Round, error)
	AdvanceRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error)
	Nominate(ctx context.Context, roundID, currentUserID, gameID int) (*models.Nomination, error)
	Vote(ctx context.Context, roundID, currentUserID, nominationID int) (*models.Vote, error)
	SubmitReview(ctx context.Context, roundID, currentUserID, score int, comment *string) (*models.Review, error)
	GetRoundDetail(ctx context.Context, roundID int) (*models.Round, error)
}

type roundService struct {
	db             *sql.DB
	roundRepo      repositories.RoundRepository
	clubRepo       repositories.ClubRepository
	memberRepo     repositories.MemberRepository
	nominationRepo repositories.NominationRepository
	voteRepo       repositories.VoteRepository
	reviewRepo     repositories.ReviewRepository
	gameRepo       repositories.GameRepository
	notifier       Notifier
	logger         *slog.Logger
}

func NewRoundService(
	db *sql.DB,
	roundRepo repositories.RoundRepository,
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	nominationRepo repositories.NominationRepository,
	voteRepo repositories.VoteRepository,
	reviewRepo repositories.ReviewRepository,
	gameRepo repositories.GameRepository,
	notifier Notifier,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		db:             db,
		roundRepo:      roundRepo,
		clubRepo:       clubRepo,
		memberRepo:     memberRepo,
		nominationRepo: nominationRepo,
		voteRepo:       voteRepo,
		reviewRepo:     reviewRepo,
		gameRepo:       gameRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *roundService) CreateRound(ctx context.Context, clubID, currentUserID int, input CreateRoundInput) (*models.Round, error) {
	club, err := s.clubRepo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", clubID, err)
	}

	if _, err := requireRole(ctx, s.memberRepo, clubID, currentUserID, models.RoleAdmin); err != nil {
		return nil, err
	}

	// Предварительная проверка — дружелюбная ошибка без обращения к constraint.
	// Гонку двух одновременных созданий ловит частичный уникальный индекс ниже.
	if _, err := s.roundRepo.GetActiveByClub(ctx, clubID); err == nil {
		return nil, ErrActiveRoundConflict
	} else if !errors.Is(err, repositories.ErrRoundNotFound) {
		return nil, fmt.Errorf("failed to check active round for club %d: %w", clubID, err)
	}

	round := &models.Round{
		ClubID:             clubID,
		Status:             models.RoundNominating,
		NominatingDeadline: input.NominatingDeadline,
		VotingDeadline:     input.VotingDeadline,
		PlayingDeadline:    input.PlayingDeadline,
		ReviewingDeadline:  input.ReviewingDeadline,
	}

	if err := s.roundRepo.Create(ctx, nil, round); err != nil {
		if errors.Is(err, repositories.ErrRoundActiveConflict) {
			return nil, ErrActiveRoundConflict
		}
		return nil, fmt.Errorf("failed to create round for club %d: %w", clubID, err)
	}

	s.notifyClubMembers(ctx, clubID, currentUserID, models.NotificationRoundStarted,
		fmt.Sprintf("Round %d started in %s: nominate a game!", round.Number, club.Name), &round.ID)

	return round, nil
}

func (s *roundService) AdvanceRound(ctx context.Context, roundID, currentUserID int) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(ctx, s.memberRepo, round.ClubID, currentUserID, models.RoleAdmin); err != nil {
		return nil, err
	}

	if round.Status.Terminal() {
		return nil, ErrRoundAlreadyCompleted
	}
	next, ok := round.Status.Next()
	if !ok {
		return nil, fmt.Errorf("%w: unknown round status %q", ErrRoundWrongPhase, round.Status)
	}

	switch round.Status {
	case models.RoundNominating:
		if err := s.advanceToVoting(ctx, round, currentUserID); err != nil {
			return nil, err
		}
	case models.RoundVoting:
		if err := s.advanceToPlaying(ctx, round, currentUserID); err != nil {
			return nil, err
		}
	case models.RoundPlaying:
		if err := s.roundRepo.UpdateStatus(ctx, nil, round.ID, next); err != nil {
			return nil, fmt.Errorf("failed to advance round %d to %s: %w", round.ID, next, err)
		}
		round.Status = next
		s.notifyClubMembers(ctx, round.ClubID, currentUserID, models.NotificationReviewingOpen,
			fmt.Sprintf("Round %d moved to reviewing: share your score!", round.Number), &round.ID)
	case models.RoundReviewing:
		if err := s.completeRound(ctx, round, currentUserID); err != nil {
			return nil, err
		}
	}

	return round, nil
}

func (s *roundService) advanceToVoting(ctx context.Context, round *models.Round, currentUserID int) error {
	count, err := s.nominationRepo.CountByRound(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to count nominations for round %d: %w", round.ID, err)
	}
	if count == 0 {
		return ErrRoundNoNominations
	}
	if err := s.roundRepo.UpdateStatus(ctx, nil, round.ID, models.RoundVoting); err != nil {
		return fmt.Errorf("failed to advance round %d to voting: %w", round.ID, err)
	}
	round.Status = models.RoundVoting
	s.notifyClubMembers(ctx, round.ClubID, currentUserID, models.NotificationVotingOpened,
		fmt.Sprintf("Voting opened for round %d.", round.Number), &round.ID)
	return nil
}

func (s *roundService) advanceToPlaying(ctx context.Context, round *models.Round, currentUserID int) error {
	nominations, err := s.nominationRepo.ListByRound(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to list nominations for round %d: %w", round.ID, err)
	}

	winner := resolveWinner(nominations)

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if winner != nil {
			if err := s.roundRepo.SetGame(ctx, exec, round.ID, winner.GameID); err != nil {
				return fmt.Errorf("failed to set winning game for round %d: %w", round.ID, err)
			}
		}
		if err := s.roundRepo.UpdateStatus(ctx, exec, round.ID, models.RoundPlaying); err != nil {
			return fmt.Errorf("failed to advance round %d to playing: %w", round.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	round.Status = models.RoundPlaying
	message := fmt.Sprintf("Round %d moved to playing.", round.Number)
	if winner != nil {
		round.GameID = &winner.GameID
		round.Game = winner.Game
		if winner.Game != nil {
			message = fmt.Sprintf("Round %d: the club picked %s. Time to play!", round.Number, winner.Game.Title)
		}
	}
	s.notifyClubMembers(ctx, round.ClubID, currentUserID, models.NotificationGameSelected, message, &round.ID)
	return nil
}

func (s *roundService) completeRound(ctx context.Context, round *models.Round, currentUserID int) error {
	now := time.Now()
	err := runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.roundRepo.UpdateStatus(ctx, exec, round.ID, models.RoundCompleted); err != nil {
			return fmt.Errorf("failed to complete round %d: %w", round.ID, err)
		}
		if err := s.roundRepo.SetCompletedAt(ctx, exec, round.ID, now); err != nil {
			return fmt.Errorf("failed to stamp completion of round %d: %w", round.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	round.Status = models.RoundCompleted
	round.CompletedAt = &now

	reviews, err := s.reviewRepo.ListByRound(ctx, round.ID)
	if err != nil {
		// Средний балл нужен только для текста уведомления.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load reviews for completed round",
				slog.Int("round_id", round.ID), slog.Any("error", err))
		}
	} else {
		round.Reviews = reviews
		round.AverageScore = averageScore(reviews)
	}

	message := fmt.Sprintf("Round %d completed.", round.Number)
	if round.AverageScore != nil {
		message = fmt.Sprintf("Round %d completed with an average score of %.1f.", round.Number, *round.AverageScore)
	}
	s.notifyClubMembers(ctx, round.ClubID, currentUserID, models.NotificationRoundCompleted, message, &round.ID)
	return nil
}

// resolveWinner выбирает номинацию с максимумом голосов; при равенстве
// побеждает более ранняя по created_at. Возвращает nil для пустого списка.
func resolveWinner(nominations []*models.Nomination) *models.Nomination {
	var winner *models.Nomination
	for _, n := range nominations {
		if n == nil {
			continue
		}
		if winner == nil ||
			n.VoteCount > winner.VoteCount ||
			(n.VoteCount == winner.VoteCount && n.CreatedAt.Before(winner.CreatedAt)) {
			winner = n
		}
	}
	return winner
}

func (s *roundService) Nominate(ctx context.Context, roundID, currentUserID, gameID int) (*models.Nomination, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if _, err := requireMember(ctx, s.memberRepo, round.ClubID, currentUserID); err != nil {
		return nil, err
	}

	if round.Status != models.RoundNominating {
		return nil, fmt.Errorf("%w: nominations are accepted only while the round is nominating (current: %s)", ErrRoundWrongPhase, round.Status)
	}

	exists, err := s.gameRepo.Exists(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to check game %d: %w", gameID, err)
	}
	if !exists {
		return nil, ErrGameNotFound
	}

	nomination := &models.Nomination{
		RoundID: roundID,
		GameID:  gameID,
		UserID:  currentUserID,
	}
	if err := s.nominationRepo.Create(ctx, nomination); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNominationConflict):
			return nil, ErrNominationConflict
		case errors.Is(err, repositories.ErrNominationGameInvalid):
			return nil, ErrGameNotFound
		case errors.Is(err, repositories.ErrNominationRoundInvalid):
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to create nomination: %w", err)
	}
	return nomination, nil
}

func (s *roundService) Vote(ctx context.Context, roundID, currentUserID, nominationID int) (*models.Vote, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if _, err := requireMember(ctx, s.memberRepo, round.ClubID, currentUserID); err != nil {
		return nil, err
	}

	if round.Status != models.RoundVoting {
		return nil, fmt.Errorf("%w: votes are accepted only while the round is voting (current: %s)", ErrRoundWrongPhase, round.Status)
	}

	nomination, err := s.nominationRepo.GetByID(ctx, nominationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNominationNotFound) {
			return nil, ErrNominationNotFound
		}
		return nil, fmt.Errorf("failed to get nomination %d: %w", nominationID, err)
	}
	if nomination.RoundID != roundID {
		return nil, ErrNominationNotFound
	}

	return s.upsertVote(ctx, roundID, currentUserID, nominationID)
}

// upsertVote: существующий голос обновляется на месте; при гонке двух
// первых голосов одного пользователя конфликт уникальности гасится
// перечитыванием и обновлением (reload-and-update).
func (s *roundService) upsertVote(ctx context.Context, roundID, userID, nominationID int) (*models.Vote, error) {
	existing, err := s.voteRepo.GetByRoundAndUser(ctx, roundID, userID)
	if err != nil && !errors.Is(err, repositories.ErrVoteNotFound) {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	if existing == nil {
		vote := &models.Vote{RoundID: roundID, UserID: userID, NominationID: nominationID}
		createErr := s.voteRepo.Create(ctx, vote)
		if createErr == nil {
			return vote, nil
		}
		if errors.Is(createErr, repositories.ErrVoteNominationInvalid) {
			return nil, ErrNominationNotFound
		}
		if !errors.Is(createErr, repositories.ErrVoteConflict) {
			return nil, fmt.Errorf("failed to create vote: %w", createErr)
		}
		existing, err = s.voteRepo.GetByRoundAndUser(ctx, roundID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload vote after conflict: %w", err)
		}
	}

	if err := s.voteRepo.UpdateNomination(ctx, existing.ID, nominationID); err != nil {
		if errors.Is(err, repositories.ErrVoteNominationInvalid) {
			return nil, ErrNominationNotFound
		}
		return nil, fmt.Errorf("failed to update vote %d: %w", existing.ID, err)
	}
	existing.NominationID = nominationID
	return existing, nil
}

func (s *roundService) SubmitReview(ctx context.Context, roundID, currentUserID, score int, comment *string) (*models.Review, error) {
	// Диапазон проверяется до всего остального: score=150 — это BadRequest
	// независимо от фазы раунда.
	if score < models.ReviewScoreMin || score > models.ReviewScoreMax {
		return nil, ErrScoreOutOfRange
	}

	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if _, err := requireMember(ctx, s.memberRepo, round.ClubID, currentUserID); err != nil {
		return nil, err
	}

	if round.Status != models.RoundReviewing {
		return nil, fmt.Errorf("%w: reviews are accepted only while the round is reviewing (current: %s)", ErrRoundWrongPhase, round.Status)
	}

	return s.upsertReview(ctx, roundID, currentUserID, score, comment)
}

func (s *roundService) upsertReview(ctx context.Context, roundID, userID, score int, comment *string) (*models.Review, error) {
	existing, err := s.reviewRepo.GetByRoundAndUser(ctx, roundID, userID)
	if err != nil && !errors.Is(err, repositories.ErrReviewNotFound) {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	if existing == nil {
		review := &models.Review{RoundID: roundID, UserID: userID, Score: score, Comment: comment}
		createErr := s.reviewRepo.Create(ctx, review)
		if createErr == nil {
			return review, nil
		}
		if !errors.Is(createErr, repositories.ErrReviewConflict) {
			return nil, fmt.Errorf("failed to create review: %w", createErr)
		}
		existing, err = s.reviewRepo.GetByRoundAndUser(ctx, roundID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload review after conflict: %w", err)
		}
	}

	existing.Score = score
	existing.Comment = comment
	if err := s.reviewRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update review %d: %w", existing.ID, err)
	}
	return existing, nil
}

func (s *roundService) GetRoundDetail(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	nominations, err := s.nominationRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nominations for round %d: %w", roundID, err)
	}
	round.Nominations = make([]models.Nomination, 0, len(nominations))
	for _, n := range nominations {
		if n != nil {
			round.Nominations = append(round.Nominations, *n)
		}
	}

	reviews, err := s.reviewRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for round %d: %w", roundID, err)
	}
	round.Reviews = reviews
	round.AverageScore = averageScore(reviews)

	if round.GameID != nil && round.Game == nil {
		game, err := s.gameRepo.GetByID(ctx, *round.GameID)
		if err == nil {
			round.Game = game
		} else if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to populate round game",
				slog.Int("round_id", roundID), slog.Any("error", err))
		}
	}
	return round, nil
}

func (s *roundService) getRound(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}
	return round, nil
}

// notifyClubMembers рассылает уведомление всем членам клуба, кроме инициатора.
func (s *roundService) notifyClubMembers(ctx context.Context, clubID, exceptUserID int, ntype models.NotificationType, message string, roundID *int) {
	if s.notifier == nil {
		return
	}
	members, err := s.memberRepo.ListByClub(ctx, clubID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to list members for notification fan-out",
				slog.Int("club_id", clubID), slog.Any("error", err))
		}
		return
	}
	for _, m := range members {
		if m == nil || m.UserID == exceptUserID {
			continue
		}
		s.notifier.Notify(ctx, m.UserID, ntype, message, &clubID, roundID)
	}
}
