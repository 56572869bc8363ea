package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
	"github.com/rgalymov/gameclub-backend/storage"
)

// GameService — только чтение: каталог наполняется внешними интеграциями.
type GameService interface {
	GetGame(ctx context.Context, id int) (*models.Game, error)
	ListGames(ctx context.Context, search string, limit, offset int) ([]models.Game, error)
}

type gameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader) GameService {
	return &gameService{gameRepo: gameRepo, uploader: uploader}
}

func (s *gameService) GetGame(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	s.populateCoverURL(game)
	return game, nil
}

func (s *gameService) ListGames(ctx context.Context, search string, limit, offset int) ([]models.Game, error) {
	games, err := s.gameRepo.List(ctx, repositories.ListGamesFilter{
		Search: search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	for i := range games {
		s.populateCoverURL(&games[i])
	}
	return games, nil
}

func (s *gameService) populateCoverURL(game *models.Game) {
	if game == nil || game.CoverKey == nil || *game.CoverKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*game.CoverKey); url != "" {
		game.CoverURL = &url
	}
}
