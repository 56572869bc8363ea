package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	ErrUserNotFound         = errors.New("user not found")
	ErrClubNotFound         = errors.New("club not found")
	ErrGameNotFound         = errors.New("game not found")
	ErrRoundNotFound        = errors.New("round not found")
	ErrNominationNotFound   = errors.New("nomination not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrMemberNotFound       = errors.New("club member not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Ошибки валидации и бизнес-правил (фазы, диапазоны)
	ErrValidationFailed      = errors.New("validation failed")
	ErrClubNameRequired      = errors.New("club name is required")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrClubPrivate           = errors.New("club is private, join by invite only")
	ErrAlreadyMember         = errors.New("user is already a member of this club")
	ErrRoundWrongPhase       = errors.New("operation is not allowed in the current round phase")
	ErrRoundNoNominations    = errors.New("no nominations")
	ErrRoundAlreadyCompleted = errors.New("round already completed")
	ErrScoreOutOfRange       = errors.New("score out of range")
	ErrInviteNotPending      = errors.New("invite is not pending")
	ErrInvalidRole           = errors.New("invalid member role")

	// Ошибки авторизации и ролей
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrNotClubMember        = errors.New("user is not a member of this club")
	ErrAdminRoleRequired    = errors.New("admin or owner role required")
	ErrOwnerRoleRequired    = errors.New("owner role required")
	ErrOwnerNotRemovable    = errors.New("club owner cannot be removed")
	ErrAdminPeerForbidden   = errors.New("admins cannot remove or demote other admins")
	ErrSelfRemovalForbidden = errors.New("use the leave endpoint to remove yourself")
	ErrOwnerCannotLeave     = errors.New("owner must transfer ownership before leaving")
	ErrInviteNotAddressee   = errors.New("invite is addressed to another user")

	// Ошибки конфликтов (уникальность)
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrUserNicknameConflict  = errors.New("nickname is already in use")
	ErrNominationConflict    = errors.New("game is already nominated in this round")
	ErrActiveRoundConflict   = errors.New("club already has an active round")
	ErrInvitePendingConflict = errors.New("user already has a pending invite to this club")
	ErrMemberConflict        = errors.New("user is already a member of this club")
)
