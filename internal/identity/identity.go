package identity

import (
	stderrors "errors"
	"time"

	"careercoach/internal/types"
)

// MaxPageSize is the largest page ListUsers will request
const MaxPageSize = 500

// DefaultPageSize is used when ListUsersParams.Limit is unset
const DefaultPageSize = 100

// ErrSessionInactive is wrapped by VerifySession when the provider reports
// the token as inactive, expired or unknown
var ErrSessionInactive = stderrors.New("session is not active")

// Session is a verified session
type Session struct {
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId,omitempty"`
	Role      string         `json:"role,omitempty"`
	ExpiresAt time.Time      `json:"expiresAt,omitzero"`
	Claims    map[string]any `json:"claims,omitempty"`
}

// HasRole reports whether the session carries the given role
func (s *Session) HasRole(role string) bool {
	return s != nil && role != "" && s.Role == role
}

// User is an identity provider account flattened to the fields we use
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	ImageURL  string
	CreatedAt time.Time
}

// Public returns the record that may leave the server
func (u User) Public() types.PublicUser {
	created := ""
	if !u.CreatedAt.IsZero() {
		created = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return types.PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		ImageURL:  u.ImageURL,
		CreatedAt: created,
	}
}

// PublicUsers maps users to public records. The result is never nil.
func PublicUsers(users []User) []types.PublicUser {
	out := make([]types.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// ListUsersParams selects one page of users
type ListUsersParams struct {
	Limit  int
	Offset int
}

// normalize applies the default page size and the MaxPageSize cap
func (p ListUsersParams) normalize() ListUsersParams {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	p.Limit = min(p.Limit, MaxPageSize)
	p.Offset = max(p.Offset, 0)
	return p
}
