package domain

import "time"

// Role enumerates portal roles. A profile may hold several.
type Role string

const (
	RoleUser     Role = "user"
	RoleHelpdesk Role = "helpdesk"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
)

// Profile is the identity provider's view of a person.
type Profile struct {
	ID        string
	FullName  string
	Email     string
	Roles     []Role
	TeamID    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName falls back to the email when no name was recorded.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// Caller is the explicit identity every core operation runs on behalf of.
type Caller struct {
	UserID string
	Roles  []Role
	TeamID *string
}

// CallerFromProfile builds the caller context for a loaded profile.
func CallerFromProfile(p *Profile) Caller {
	return Caller{UserID: p.ID, Roles: p.Roles, TeamID: p.TeamID}
}

// HasRole reports whether the caller holds role.
func (c Caller) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (c Caller) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

// Privileged reports whether the caller may triage tickets.
func (c Caller) Privileged() bool {
	return c.HasAnyRole(RoleAdmin, RoleHelpdesk)
}
