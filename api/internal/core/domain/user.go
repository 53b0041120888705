package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

// UserContextKey carries the verified *UserClaims on the request context.
const UserContextKey contextKey = "user_claims"

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserClaims is the identity extracted from a verified access token.
type UserClaims struct {
	Subject uuid.UUID
	Email   string
}

// Session is what a successful login hands back to a client. UserID doubles as
// the weak secret the client seals with.
type Session struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	ValidateAccessToken(ctx context.Context, token string) (*UserClaims, error)
}
