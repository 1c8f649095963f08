package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account with a bcrypt-hashed password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	Password  string    `bun:"password,notnull" json:"-"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// UserProfile holds contact details. Owned by the account surface; read-only here.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID      int64     `bun:"user_id,notnull,unique" json:"user_id"`
	FirstName   *string   `bun:"first_name" json:"first_name"`
	LastName    *string   `bun:"last_name" json:"last_name"`
	Email       string    `bun:"email,notnull" json:"email"`
	PhoneNumber *string   `bun:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
}

// Subscription is a user's plan. Billing owns it; read-only here.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:s"`

	ID                 int64              `bun:"id,pk,autoincrement" json:"id"`
	UserID             int64              `bun:"user_id,notnull" json:"user_id"`
	Plan               Plan               `bun:"plan,notnull,default:'free'" json:"plan"`
	Status             SubscriptionStatus `bun:"status,notnull,default:'active'" json:"status"`
	CurrentPeriodStart time.Time          `bun:"current_period_start,nullzero,notnull,default:current_timestamp" json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `bun:"current_period_end,nullzero,notnull,default:current_timestamp" json:"current_period_end"`
	CreatedAt          time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
}
