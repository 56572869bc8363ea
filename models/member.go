package models

import "time"

// MemberRole — роль участника клуба, соответствует ENUM в БД.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

var roleRank = map[MemberRole]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// AtLeast reports whether the role grants at least the rights of other.
// Unknown roles rank below member.
func (r MemberRole) AtLeast(other MemberRole) bool {
	return roleRank[r] >= roleRank[other]
}

func (r MemberRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

type Member struct {
	ID       int        `json:"id" db:"id"`
	ClubID   int        `json:"club_id" db:"club_id"`
	UserID   int        `json:"user_id" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
