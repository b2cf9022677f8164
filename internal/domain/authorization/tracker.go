package authorization

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Voralis/grantly/internal/domain/user"
	"github.com/Voralis/grantly/internal/metadata"
	"gorm.io/gorm"
)

// GrantNotification is the signal from the token engine that a grant flow
// produced something. Only first-time consent completions are tracked; a
// notification that already carries an access credential is a token
// exchange or refresh and is ignored.
type GrantNotification struct {
	PrincipalName     string   `json:"principal_name"`
	ClientID          string   `json:"client_id"`
	Scopes            []string `json:"scopes"`
	AuthorizationCode string   `json:"authorization_code,omitempty"`
	AccessToken       string   `json:"access_token,omitempty"`
}

// IsNewGrant reports whether this notification is the first completion of
// an authorization: a freshly issued authorization code with no access
// token yet.
func (n *GrantNotification) IsNewGrant() bool {
	return n.AuthorizationCode != "" && n.AccessToken == ""
}

// errNoScopeChange aborts the tracking transaction when the notification
// adds no scopes relative to the active record; the rollback is a no-op.
var errNoScopeChange = errors.New("no new scopes")

// Tracker records new authorization grants in the history store
type Tracker struct {
	repo     Repository
	userRepo user.Repository
}

// NewTracker creates a new lifecycle tracker
func NewTracker(repo Repository, userRepo user.Repository) *Tracker {
	return &Tracker{
		repo:     repo,
		userRepo: userRepo,
	}
}

// TrackIfNew records the grant in the history store if it is a new
// authorization or a scope expansion. Tracking is best-effort: every
// failure is logged and swallowed so the grant flow that triggered the
// notification is never aborted.
func (t *Tracker) TrackIfNew(grant *GrantNotification, meta metadata.Request) {
	if !grant.IsNewGrant() {
		return
	}

	u, err := t.userRepo.FindByUsername(grant.PrincipalName)
	if err != nil {
		slog.Error("Failed to resolve principal for authorization tracking",
			"principal", grant.PrincipalName,
			"client_id", grant.ClientID,
			"error", err)
		return
	}

	newScopes := normalizeScopes(grant.Scopes)

	err = t.repo.Transaction(func(tx Repository) error {
		existing, err := tx.FindActiveByPairForUpdate(u.ID, grant.ClientID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			if !hasAddedScopes(existing.ScopeList(), newScopes) {
				return errNoScopeChange
			}
			// Scope expansion: the old record is superseded, not revoked
			if err := tx.MarkSuperseded(existing.ID); err != nil {
				return err
			}
		}

		record := &Authorization{
			UserID:           u.ID,
			ClientID:         grant.ClientID,
			AuthorizedScopes: strings.Join(newScopes, " "),
			IPAddress:        meta.IPAddress,
			UserAgent:        meta.UserAgent,
			Browser:          meta.Browser,
			DeviceType:       meta.DeviceType,
			OS:               meta.OS,
			Country:          meta.Country,
			City:             meta.City,
			GrantedAt:        time.Now().UTC(),
			IsActive:         true,
		}
		return tx.Create(record)
	})

	switch {
	case errors.Is(err, errNoScopeChange):
		slog.Debug("No new scopes granted, skipping history entry",
			"principal", grant.PrincipalName,
			"client_id", grant.ClientID)
	case err != nil:
		slog.Error("Failed to record authorization history",
			"principal", grant.PrincipalName,
			"client_id", grant.ClientID,
			"error", err)
	default:
		slog.Info("Authorization history recorded",
			"principal", grant.PrincipalName,
			"client_id", grant.ClientID,
			"scopes", len(newScopes),
			"ip", meta.IPAddress)
	}
}
