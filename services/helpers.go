package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
)

// --- Общие хелперы ---

// runInTx выполняет fn в транзакции. При nil db (юнит-тесты на фейковых
// репозиториях) fn вызывается без транзакции.
func runInTx(ctx context.Context, db *sql.DB, fn func(exec repositories.SQLExecutor) error) error {
	if db == nil {
		return fn(nil)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireMember возвращает членство пользователя в клубе
// или ErrNotClubMember, если записи нет.
func requireMember(ctx context.Context, memberRepo repositories.MemberRepository, clubID, userID int) (*models.Member, error) {
	member, err := memberRepo.GetByClubAndUser(ctx, clubID, userID)
	if err != nil {
		if err == repositories.ErrMemberNotFound {
			return nil, ErrNotClubMember
		}
		return nil, fmt.Errorf("failed to get membership for user %d in club %d: %w", userID, clubID, err)
	}
	return member, nil
}

// requireRole — requireMember плюс проверка минимальной роли.
func requireRole(ctx context.Context, memberRepo repositories.MemberRepository, clubID, userID int, minRole models.MemberRole) (*models.Member, error) {
	member, err := requireMember(ctx, memberRepo, clubID, userID)
	if err != nil {
		return nil, err
	}
	if !member.Role.AtLeast(minRole) {
		if minRole == models.RoleOwner {
			return nil, ErrOwnerRoleRequired
		}
		return nil, ErrAdminRoleRequired
	}
	return member, nil
}

func validateSocialLinks(links *string) *string {
	if links == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*links)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// GetExtensionFromContentType подбирает расширение файла по content type изображения.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}

// averageScore — среднее арифметическое; nil, если отзывов нет.
func averageScore(reviews []models.Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, rv := range reviews {
		sum += rv.Score
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}
