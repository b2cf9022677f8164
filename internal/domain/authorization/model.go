package authorization

import (
	"strings"
	"time"

	"github.com/Voralis/grantly/internal/database"
	"github.com/google/uuid"
)

// Authorization is one granted-or-superseded authorization of a client by a
// user. Records are permanent audit history: they are created by the
// tracker, flipped inactive by supersession or revocation, and never
// deleted. When scopes are added to an existing authorization the old row is
// marked inactive without setting revoked_at and a new row is created.
type Authorization struct {
	database.BaseModel

	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ClientID         string    `gorm:"column:client_id;type:varchar(255);not null;index"`
	AuthorizedScopes string    `gorm:"column:authorized_scopes;type:text;not null"` // space-separated

	// Request metadata, captured at grant time
	IPAddress  string `gorm:"column:ip_address;type:text"`
	UserAgent  string `gorm:"column:user_agent;type:text"`
	Browser    string `gorm:"column:browser;size:100"`
	DeviceType string `gorm:"column:device_type;size:50"`
	OS         string `gorm:"column:os;size:100"`
	Country    string `gorm:"column:country;size:100"`
	City       string `gorm:"column:city;size:100"`

	// Lifecycle tracking
	GrantedAt time.Time  `gorm:"column:granted_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false;index"`
}

func (Authorization) TableName() string {
	return "authorization_history"
}

// State is the lifecycle state of an authorization record
type State int

const (
	// StateActive is the single current authorization of a pair
	StateActive State = iota
	// StateSuperseded was replaced by a scope expansion; revoked_at stays nil
	StateSuperseded
	// StateRevoked was explicitly terminated by the user
	StateRevoked
)

// State derives the lifecycle state from the is_active/revoked_at columns
func (a *Authorization) State() State {
	switch {
	case a.IsActive:
		return StateActive
	case a.RevokedAt != nil:
		return StateRevoked
	default:
		return StateSuperseded
	}
}

// ScopeList returns the authorized scopes as a slice
func (a *Authorization) ScopeList() []string {
	return strings.Fields(a.AuthorizedScopes)
}

// ConnectionResponse is the client-enriched view of an authorization record
type ConnectionResponse struct {
	ID         uuid.UUID  `json:"id"`
	ClientID   string     `json:"client_id"`
	ClientName string     `json:"client_name"`
	Scopes     []string   `json:"scopes"`
	IPAddress  string     `json:"ip_address,omitempty"`
	Browser    string     `json:"browser,omitempty"`
	DeviceType string     `json:"device_type,omitempty"`
	OS         string     `json:"os,omitempty"`
	Country    string     `json:"country,omitempty"`
	City       string     `json:"city,omitempty"`
	GrantedAt  time.Time  `json:"granted_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	Active     bool       `json:"active"`
}

// ToResponse converts an Authorization to a ConnectionResponse
func (a *Authorization) ToResponse(clientName string) *ConnectionResponse {
	return &ConnectionResponse{
		ID:         a.ID,
		ClientID:   a.ClientID,
		ClientName: clientName,
		Scopes:     a.ScopeList(),
		IPAddress:  a.IPAddress,
		Browser:    a.Browser,
		DeviceType: a.DeviceType,
		OS:         a.OS,
		Country:    a.Country,
		City:       a.City,
		GrantedAt:  a.GrantedAt,
		RevokedAt:  a.RevokedAt,
		Active:     a.IsActive,
	}
}

// normalizeScopes drops empty and duplicate entries, preserving order
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]bool, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// hasAddedScopes reports whether requested contains at least one scope not
// already in existing. Removals are ignored; scope sets never shrink across
// a superseding chain.
func hasAddedScopes(existing, requested []string) bool {
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s] = true
	}
	for _, s := range requested {
		if !known[s] {
			return true
		}
	}
	return false
}
