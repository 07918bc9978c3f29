package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of portal roles. Each user has exactly one.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleSpecialist   Role = "specialist"
	RoleRadiologist  Role = "radiologist"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{
	RoleAdmin, RoleDoctor, RoleSpecialist, RoleRadiologist, RoleReceptionist, RolePatient,
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts a raw string into a Role. Unknown values are rejected
// rather than coerced.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleSet is a set of roles permitted to access a resource.
type RoleSet []Role

func Roles(roles ...Role) RoleSet { return RoleSet(roles) }

func (s RoleSet) Contains(r Role) bool {
	for _, have := range s {
		if have == r {
			return true
		}
	}
	return false
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SessionSource records where a session was established.
type SessionSource string

const (
	SourceRemote SessionSource = "remote"
	SourceDemo   SessionSource = "demo"
	// SourceLocal is an account registered in demo mode without an identity
	// service. It is not one of the demo accounts.
	SourceLocal SessionSource = "local"
)

// Session is an established login. Only the identity resolver creates or
// destroys sessions.
type Session struct {
	ID           string        `json:"id"`
	User         User          `json:"user"`
	Source       SessionSource `json:"source"`
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	IssuedAt     time.Time     `json:"issued_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// SessionView is the client-facing form of a Session. Identity service
// tokens stay server side.
type SessionView struct {
	ID        string        `json:"id"`
	User      User          `json:"user"`
	Source    SessionSource `json:"source"`
	IssuedAt  time.Time     `json:"issued_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func (s *Session) View() *SessionView {
	if s == nil {
		return nil
	}
	return &SessionView{ID: s.ID, User: s.User, Source: s.Source, IssuedAt: s.IssuedAt, ExpiresAt: s.ExpiresAt}
}

func (s *Session) IsDemo() bool {
	return s != nil && s.Source == SourceDemo
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
