// ABOUTME: Decodes the user identity carried in the API bearer token
// ABOUTME: The signature is never checked; the decoded session is a UI hint only

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be decoded into a session
var ErrMalformedToken = errors.New("malformed token")

// Role is the user's role on the platform
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Session is the identity derived from the bearer token
type Session struct {
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// claims mirrors the token payload issued by the API
type claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Decode extracts the session from the payload segment of token.
// Unknown roles are treated as student so teacher-only views stay hidden.
func Decode(token string) (Session, error) {
	var c claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &c); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if c.Username == "" {
		return Session{}, fmt.Errorf("%w: missing username", ErrMalformedToken)
	}

	s := Session{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
	}
	if s.Role != RoleTeacher {
		s.Role = RoleStudent
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// IsTeacher reports whether the session belongs to a teacher
func (s Session) IsTeacher() bool {
	return s.Role == RoleTeacher
}

// Expired reports whether the token carried an exp claim that is before now
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
