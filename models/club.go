package models

import "time"

// ClubVisibility соответствует ENUM в БД.
type ClubVisibility string

const (
	VisibilityPublic  ClubVisibility = "public"
	VisibilityPrivate ClubVisibility = "private"
)

type Club struct {
	ID          int            `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description *string        `json:"description,omitempty" db:"description"`
	Visibility  ClubVisibility `json:"visibility" db:"visibility"`
	OwnerID     int            `json:"owner_id" db:"owner_id"`
	SocialLinks *string        `json:"social_links,omitempty" db:"social_links"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`

	CoverKey *string `json:"-" db:"cover_key"`
	CoverURL *string `json:"cover_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Owner   *User    `json:"owner,omitempty" db:"-"`
	Members []Member `json:"members,omitempty" db:"-"`
	Rounds  []Round  `json:"rounds,omitempty" db:"-"`
}
