package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
)

type MemberService interface {
	GetRole(ctx context.Context, clubID, userID int) (models.MemberRole, error)
	ListMembers(ctx context.Context, clubID int) ([]*models.Member, error)
	RemoveMember(ctx context.Context, clubID, targetUserID, currentUserID int) error
	UpdateMemberRole(ctx context.Context, clubID, targetUserID int, role models.MemberRole, currentUserID int) error
	TransferOwnership(ctx context.Context, clubID, targetUserID, currentUserID int) error
	Leave(ctx context.Context, clubID, currentUserID int) error

	InviteMember(ctx context.Context, clubID, inviteeID, currentUserID int) (*models.Invite, error)
	RespondToInvite(ctx context.Context, inviteID, currentUserID int, accept bool) (*models.Invite, error)
	ListMyInvites(ctx context.Context, currentUserID int) ([]*models.Invite, error)
}

type memberService struct {
	db         *sql.DB
	memberRepo repositories.MemberRepository
	clubRepo   repositories.ClubRepository
	userRepo   repositories.UserRepository
	inviteRepo repositories.InviteRepository
	notifier   Notifier
	logger     *slog.Logger
}

func NewMemberService(
	db *sql.DB,
	memberRepo repositories.MemberRepository,
	clubRepo repositories.ClubRepository,
	userRepo repositories.UserRepository,
	inviteRepo repositories.InviteRepository,
	notifier Notifier,
	logger *slog.Logger,
) MemberService {
	return &memberService{
		db:         db,
		memberRepo: memberRepo,
		clubRepo:   clubRepo,
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *memberService) GetRole(ctx context.Context, clubID, userID int) (models.MemberRole, error) {
	member, err := requireMember(ctx, s.memberRepo, clubID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *memberService) ListMembers(ctx context.Context, clubID int) ([]*models.Member, error) {
	members, err := s.memberRepo.ListByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of club %d: %w", clubID, err)
	}
	return members, nil
}

func (s *memberService) RemoveMember(ctx context.Context, clubID, targetUserID, currentUserID int) error {
	if targetUserID == currentUserID {
		return ErrSelfRemovalForbidden
	}

	actor, err := requireRole(ctx, s.memberRepo, clubID, currentUserID, models.RoleAdmin)
	if err != nil {
		return err
	}

	target, err := s.memberRepo.GetByClubAndUser(ctx, clubID, targetUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member %d of club %d: %w", targetUserID, clubID, err)
	}

	if target.Role == models.RoleOwner {
		return ErrOwnerNotRemovable
	}
	// Админ не может убирать равных себе, только владелец.
	if actor.Role == models.RoleAdmin && target.Role == models.RoleAdmin {
		return ErrAdminPeerForbidden
	}

	if err := s.memberRepo.Delete(ctx, clubID, targetUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to remove member %d from club %d: %w", targetUserID, clubID, err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, targetUserID, models.NotificationMemberRemoved,
			"You have been removed from the club.", &clubID, nil)
	}
	return nil
}

func (s *memberService) UpdateMemberRole(ctx context.Context, clubID, targetUserID int, role models.MemberRole, currentUserID int) error {
	// owner назначается только через передачу владения.
	if !role.Valid() || role == models.RoleOwner {
		return ErrInvalidRole
	}

	actor, err := requireRole(ctx, s.memberRepo, clubID, currentUserID, models.RoleAdmin)
	if err != nil {
		return err
	}

	target, err := s.memberRepo.GetByClubAndUser(ctx, clubID, targetUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member %d of club %d: %w", targetUserID, clubID, err)
	}

	if target.Role == models.RoleOwner {
		return ErrForbiddenOperation
	}
	if actor.Role == models.RoleAdmin && target.Role == models.RoleAdmin {
		return ErrAdminPeerForbidden
	}
	if target.Role == role {
		return nil
	}

	if err := s.memberRepo.UpdateRole(ctx, nil, clubID, targetUserID, role); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to update role of member %d in club %d: %w", targetUserID, clubID, err)
	}
	return nil
}

// TransferOwnership атомарно меняет роли: прежний владелец становится
// админом, получатель — владельцем. Инвариант "ровно один owner на клуб"
// держится за счёт одной транзакции.
func (s *memberService) TransferOwnership(ctx context.Context, clubID, targetUserID, currentUserID int) error {
	if _, err := requireRole(ctx, s.memberRepo, clubID, currentUserID, models.RoleOwner); err != nil {
		return err
	}
	if targetUserID == currentUserID {
		return nil
	}

	if _, err := s.memberRepo.GetByClubAndUser(ctx, clubID, targetUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member %d of club %d: %w", targetUserID, clubID, err)
	}

	return runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.memberRepo.UpdateRole(ctx, exec, clubID, currentUserID, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to demote previous owner: %w", err)
		}
		if err := s.memberRepo.UpdateRole(ctx, exec, clubID, targetUserID, models.RoleOwner); err != nil {
			return fmt.Errorf("failed to promote new owner: %w", err)
		}
		return nil
	})
}

func (s *memberService) Leave(ctx context.Context, clubID, currentUserID int) error {
	member, err := requireMember(ctx, s.memberRepo, clubID, currentUserID)
	if err != nil {
		return err
	}
	if member.Role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}

	if err := s.memberRepo.Delete(ctx, clubID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to leave club %d: %w", clubID, err)
	}
	return nil
}

func (s *memberService) InviteMember(ctx context.Context, clubID, inviteeID, currentUserID int) (*models.Invite, error) {
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

	if _, err := s.userRepo.GetByID(ctx, inviteeID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", inviteeID, err)
	}

	if _, err := s.memberRepo.GetByClubAndUser(ctx, clubID, inviteeID); err == nil {
		return nil, ErrMemberConflict
	} else if !errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to check membership of user %d: %w", inviteeID, err)
	}

	invite := &models.Invite{
		ClubID:    clubID,
		InviterID: currentUserID,
		InviteeID: inviteeID,
		Status:    models.InvitePending,
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		if errors.Is(err, repositories.ErrInvitePendingConflict) {
			return nil, ErrInvitePendingConflict
		}
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, inviteeID, models.NotificationClubInvite,
			fmt.Sprintf("You have been invited to join %s.", club.Name), &clubID, nil)
	}
	return invite, nil
}

func (s *memberService) RespondToInvite(ctx context.Context, inviteID, currentUserID int, accept bool) (*models.Invite, error) {
	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite %d: %w", inviteID, err)
	}

	if invite.InviteeID != currentUserID {
		return nil, ErrInviteNotAddressee
	}
	if invite.Status != models.InvitePending {
		return nil, ErrInviteNotPending
	}

	if !accept {
		if err := s.inviteRepo.UpdateStatus(ctx, nil, invite.ID, models.InviteDeclined); err != nil {
			return nil, fmt.Errorf("failed to decline invite %d: %w", invite.ID, err)
		}
		invite.Status = models.InviteDeclined
		return invite, nil
	}

	err = runInTx(ctx, s.db, func(exec repositories.SQLExecutor) error {
		if err := s.inviteRepo.UpdateStatus(ctx, exec, invite.ID, models.InviteAccepted); err != nil {
			return fmt.Errorf("failed to accept invite %d: %w", invite.ID, err)
		}
		member := &models.Member{ClubID: invite.ClubID, UserID: currentUserID, Role: models.RoleMember}
		// Гонка двойного accept: дубликат молча пропускается, accept идемпотентен.
		if _, err := s.memberRepo.CreateIfAbsent(ctx, exec, member); err != nil {
			return fmt.Errorf("failed to add member for invite %d: %w", invite.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invite.Status = models.InviteAccepted
	return invite, nil
}

func (s *memberService) ListMyInvites(ctx context.Context, currentUserID int) ([]*models.Invite, error) {
	invites, err := s.inviteRepo.ListPendingByInvitee(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites for user %d: %w", currentUserID, err)
	}
	return invites, nil
}
