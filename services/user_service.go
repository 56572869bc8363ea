package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
	"github.com/rgalymov/gameclub-backend/storage"
)

type UserService interface {
	GetProfile(ctx context.Context, userID int) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{userRepo: userRepo, uploader: uploader, logger: logger}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("users/%d/avatar%s", userID, ext)
	oldKey := user.AvatarKey

	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %d: %w", userID, err)
	}
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &key); err != nil {
		return nil, fmt.Errorf("failed to store avatar key for user %d: %w", userID, err)
	}

	// Старый файл чистим best-effort: расширение могло смениться.
	if oldKey != nil && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to delete previous avatar",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	user.AvatarKey = &key
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) populateAvatarURL(user *models.User) {
	if user == nil || user.AvatarKey == nil || *user.AvatarKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*user.AvatarKey); url != "" {
		user.AvatarURL = &url
	}
}
