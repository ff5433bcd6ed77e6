package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// User is a storefront client or distributor account. PasswordHash is nil for
// accounts created through a magic link.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:ux_users_email" bson:"email"`
	PasswordHash *string        `gorm:"column:password_hash" bson:"password_hash,omitempty"`
	Role         enums.UserRole `gorm:"column:role;not null;default:'client'" bson:"role"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true" bson:"is_active"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" bson:"last_login_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
