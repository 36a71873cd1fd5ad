package models

import (
	"playmatch/tags/internal/tagging"

	"gorm.io/gorm"
)

// UserTaggableType is the taggable_type stored for users.
const UserTaggableType = "users"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a user in the system. A user's tags are their interests.
type User struct {
	gorm.Model
	Nickname     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:50;not null;default:'user';index"`

	QueuedTags tagging.Pending `gorm:"-" json:"-"`
}

func (u *User) TaggableID() uint              { return u.ID }
func (u *User) TaggableType() string          { return UserTaggableType }
func (u *User) TaggableTable() string         { return "users" }
func (u *User) PendingTags() *tagging.Pending { return &u.QueuedTags }
