package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no row matches
var ErrNotFound = errors.New("not found")

// User is a local projection of an identity-provider user record.
// The ID is assigned by the provider, never generated here.
type User struct {
	ID        string
	Name      string
	Email     string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserNotificationSettings is owned one-to-one by a User and created
// in the same transaction as the user row
type UserNotificationSettings struct {
	UserID                   string
	NewJobEmailNotifications bool
	AIPrompt                 string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// CreateWithSettings inserts the user and its notification settings
	// atomically. A duplicate id is not an error: created reports
	// whether this call inserted the row.
	CreateWithSettings(ctx context.Context, user *User) (created bool, err error)
	// Upsert overwrites mutable fields, inserting the row (and its
	// settings) if it does not exist yet.
	Upsert(ctx context.Context, user *User) error
	// Delete removes the user by id. Missing rows are a no-op; deleted
	// reports whether a row was actually removed.
	Delete(ctx context.Context, id string) (deleted bool, err error)
}

// Organization is a local projection of an identity-provider
// organization record
type Organization struct {
	ID        string
	Name      string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationUserSettings holds a member's per-organization
// notification preferences
type OrganizationUserSettings struct {
	OrganizationID                   string
	UserID                           string
	NewApplicationEmailNotifications bool
	MinimumRating                    *int
	CreatedAt                        time.Time
	UpdatedAt                        time.Time
}

// OrganizationRepository defines data access for organizations
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
	Create(ctx context.Context, org *Organization) (created bool, err error)
	Upsert(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) (deleted bool, err error)
}
