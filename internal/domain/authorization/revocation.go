package authorization

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Voralis/grantly/internal/domain/user"
	"github.com/Voralis/grantly/internal/token"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Revoker terminates active authorizations: it marks the history record
// revoked and deletes the pair's live credentials from the token store.
type Revoker struct {
	repo     Repository
	userRepo user.Repository
	tokens   token.Store
}

// NewRevoker creates a new revocation coordinator
func NewRevoker(repo Repository, userRepo user.Repository, tokens token.Store) *Revoker {
	return &Revoker{
		repo:     repo,
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Revoke terminates the active authorization of a (user, client) pair.
// It returns false when no active authorization exists, which is not an
// error. The history write is the durable source of truth and commits
// first; token deletions afterwards are best-effort per credential, so a
// partial cleanup leaves at worst tokens that die at their natural expiry.
func (r *Revoker) Revoke(ctx context.Context, userID uuid.UUID, clientID string) (bool, error) {
	found := false
	err := r.repo.Transaction(func(tx Repository) error {
		active, err := tx.FindActiveByPairForUpdate(userID, clientID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return tx.MarkRevoked(active.ID, time.Now().UTC())
	})
	if err != nil {
		return false, err
	}
	if !found {
		slog.Warn("No active authorization found to revoke",
			"user_id", userID, "client_id", clientID)
		return false, nil
	}

	slog.Info("Authorization history marked as revoked",
		"user_id", userID, "client_id", clientID)

	r.cleanupTokens(ctx, userID, clientID)
	return true, nil
}

// cleanupTokens deletes every live credential of the pair from the token
// store. Failures are logged for operational visibility and never surfaced;
// the revocation already committed.
func (r *Revoker) cleanupTokens(ctx context.Context, userID uuid.UUID, clientID string) {
	u, err := r.userRepo.FindByID(userID)
	if err != nil {
		slog.Warn("Failed to resolve principal for token cleanup",
			"user_id", userID, "client_id", clientID, "error", err)
		return
	}

	creds, err := r.tokens.ListByClientAndPrincipal(ctx, clientID, u.Username)
	if err != nil {
		slog.Warn("Failed to list credentials for token cleanup",
			"user_id", userID, "client_id", clientID, "error", err)
		return
	}

	deleted := 0
	for i := range creds {
		if err := r.tokens.Delete(ctx, &creds[i]); err != nil {
			slog.Warn("Failed to delete credential",
				"credential_id", creds[i].ID, "client_id", clientID, "error", err)
			continue
		}
		deleted++
	}

	slog.Info("Revoked authorization tokens",
		"user_id", userID, "client_id", clientID, "deleted", deleted, "total", len(creds))
}
