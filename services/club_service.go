package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
	"github.com/rgalymov/gameclub-backend/storage"
)

type CreateClubInput struct {
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Visibility  models.ClubVisibility `json:"visibility"`
	SocialLinks *string               `json:"social_links,omitempty"`
}

// ClubDetail — агрегат для страницы клуба.
type ClubDetail struct {
	Club        *models.Club     `json:"club"`
	Members     []*models.Member `json:"members"`
	Rounds      []models.Round   `json:"rounds"`
	ActiveRound *models.Round    `json:"active_round,omitempty"`
}

type ClubService interface {
	CreateClub(ctx context.Context, currentUserID int, input CreateClubInput) (*models.Club, error)
	GetClubDetail(ctx context.Context, clubID int) (*ClubDetail, error)
	ListClubs(ctx context.Context, limit, offset int) ([]models.Club, error)
	UpdateClub(ctx context.Context, clubID, currentUserID int, input CreateClubInput) (*models.Club, error)
	DeleteClub(ctx context.Context, clubID, currentUserID int) error
	JoinPublicClub(ctx context.Context, clubID, currentUserID int) (*models.Member, error)
	UploadClubCover(ctx context.Context, clubID, currentUserID int, contentType string, file io.Reader) (*models.Club, error)
}

type clubService struct {
	db             *sql.DB
	clubRepo       repositories.ClubRepository
	memberRepo     repositories.MemberRepository
	roundRepo      repositories.RoundRepository
	nominationRepo repositories.NominationRepository
	reviewRepo     repositories.ReviewRepository
	uploader       storage.FileUploader
	notifier       Notifier
	logger         *slog.Logger
}

func NewClubService(
	db *sql.DB,
	clubRepo repositories.ClubRepository,
	memberRepo repositories.MemberRepository,
	roundRepo repositories.RoundRepository,
	nominationRepo repositories.NominationRepository,
	reviewRepo repositories.ReviewRepository,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) ClubService {
	return &clubService{
		db:             db,
		clubRepo:       clubRepo,
		memberRepo:     memberRepo,
		roundRepo:      roundRepo,
		nominationRepo: nominationRepo,
		reviewRepo:     reviewRepo,
		uploader:       uploader,
		notifier:       notifier,
		logger:         logger,
	}
}

// CreateClub создаёт клуб и членство владельца одной транзакцией.
func (s *clubService) CreateClub(ctx context.Context, currentUserID int, input CreateClubInput) (*models.Club, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrClubNameRequired
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidationFailed, input.Visibility)
	}

	club := &models.Club{
		Name:        name,
		Description: input.Description,
		Visibility:  visibility,
		OwnerID:     currentUserID,
		SocialLinks: validateSocialLinks(input.SocialLinks),
	}

	err := runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.clubRepo.Create(ctx, exec, club); err != nil {
			if errors.Is(err, repositories.ErrClubOwnerInvalid) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to create club: %w", err)
		}
		owner := &models.Member{ClubID: club.ID, UserID: currentUserID, Role: models.RoleOwner}
		if err := s.memberRepo.Create(ctx, exec, owner); err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return club, nil
}

func (s *clubService) GetClubDetail(ctx context.Context, clubID int) (*ClubDetail, error) {
	club, err := s.clubRepo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", clubID, err)
	}
	s.populateClubCoverURL(club)

	detail := &ClubDetail{Club: club}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := s.memberRepo.ListByClub(gctx, clubID)
		if err != nil {
			return fmt.Errorf("failed to list members of club %d: %w", clubID, err)
		}
		detail.Members = members
		return nil
	})
	g.Go(func() error {
		rounds, err := s.roundRepo.ListByClub(gctx, clubID)
		if err != nil {
			return fmt.Errorf("failed to list rounds of club %d: %w", clubID, err)
		}
		detail.Rounds = rounds
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range detail.Rounds {
		rd := &detail.Rounds[i]
		if !rd.Status.Terminal() {
			detail.ActiveRound = rd
			break
		}
	}
	if detail.ActiveRound != nil {
		if err := s.populateActiveRound(ctx, detail.ActiveRound); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *clubService) populateActiveRound(ctx context.Context, round *models.Round) error {
	nominations, err := s.nominationRepo.ListByRound(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to list nominations of round %d: %w", round.ID, err)
	}
	round.Nominations = make([]models.Nomination, 0, len(nominations))
	for _, n := range nominations {
		if n != nil {
			round.Nominations = append(round.Nominations, *n)
		}
	}

	if round.Status == models.RoundReviewing {
		reviews, err := s.reviewRepo.ListByRound(ctx, round.ID)
		if err != nil {
			return fmt.Errorf("failed to list reviews of round %d: %w", round.ID, err)
		}
		round.Reviews = reviews
		round.AverageScore = averageScore(reviews)
	}
	return nil
}

func (s *clubService) ListClubs(ctx context.Context, limit, offset int) ([]models.Club, error) {
	public := models.VisibilityPublic
	clubs, err := s.clubRepo.List(ctx, repositories.ListClubsFilter{
		Visibility: &public,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	for i := range clubs {
		s.populateClubCoverURL(&clubs[i])
	}
	return clubs, nil
}

func (s *clubService) UpdateClub(ctx context.Context, clubID, currentUserID int, input CreateClubInput) (*models.Club, error) {
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

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrClubNameRequired
	}
	club.Name = name
	club.Description = input.Description
	club.SocialLinks = validateSocialLinks(input.SocialLinks)
	if input.Visibility != "" {
		if input.Visibility != models.VisibilityPublic && input.Visibility != models.VisibilityPrivate {
			return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidationFailed, input.Visibility)
		}
		club.Visibility = input.Visibility
	}

	if err := s.clubRepo.Update(ctx, club); err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to update club %d: %w", clubID, err)
	}
	return club, nil
}

// DeleteClub удаляет клуб и каскадно все его раунды, членства, номинации,
// голоса и отзывы. Уведомляет остальных членов до удаления (после удаления
// их уже не перечислить).
func (s *clubService) DeleteClub(ctx context.Context, clubID, currentUserID int) error {
	club, err := s.clubRepo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return ErrClubNotFound
		}
		return fmt.Errorf("failed to get club %d: %w", clubID, err)
	}

	if _, err := requireRole(ctx, s.memberRepo, clubID, currentUserID, models.RoleOwner); err != nil {
		return err
	}

	members, err := s.memberRepo.ListByClub(ctx, clubID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to list members before club deletion",
				slog.Int("club_id", clubID), slog.Any("error", err))
		}
		members = nil
	}

	if err := s.clubRepo.Delete(ctx, clubID); err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return ErrClubNotFound
		}
		return fmt.Errorf("failed to delete club %d: %w", clubID, err)
	}

	if s.notifier != nil {
		for _, m := range members {
			if m == nil || m.UserID == currentUserID {
				continue
			}
			s.notifier.Notify(ctx, m.UserID, models.NotificationClubDeleted,
				fmt.Sprintf("The club %s has been closed.", club.Name), nil, nil)
		}
	}
	return nil
}

func (s *clubService) JoinPublicClub(ctx context.Context, clubID, currentUserID int) (*models.Member, error) {
	club, err := s.clubRepo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", clubID, err)
	}

	if club.Visibility != models.VisibilityPublic {
		return nil, ErrClubPrivate
	}

	member := &models.Member{ClubID: clubID, UserID: currentUserID, Role: models.RoleMember}
	if err := s.memberRepo.Create(ctx, nil, member); err != nil {
		if errors.Is(err, repositories.ErrMemberConflict) {
			return nil, ErrAlreadyMember
		}
		if errors.Is(err, repositories.ErrMemberUserInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to join club %d: %w", clubID, err)
	}
	return member, nil
}

func (s *clubService) UploadClubCover(ctx context.Context, clubID, currentUserID int, contentType string, file io.Reader) (*models.Club, error) {
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

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	oldKey := club.CoverKey
	key := fmt.Sprintf("clubs/%d/cover%s", clubID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload club cover: %w", err)
	}

	if err := s.clubRepo.UpdateCoverKey(ctx, clubID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to save club cover key: %w", err)
	}
	club.CoverKey = &result.Key

	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to delete previous club cover",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	s.populateClubCoverURL(club)
	return club, nil
}

func (s *clubService) populateClubCoverURL(club *models.Club) {
	if club == nil || club.CoverKey == nil || *club.CoverKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*club.CoverKey); url != "" {
		club.CoverURL = &url
	}
}
