package cors

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/Voralis/grantly/internal/domain/client"
)

// Resolver decides per-request whether a browser origin may call the OAuth
// endpoints, based on the registered client's origin allowlist.
type Resolver struct {
	clients client.Repository
}

func NewResolver(clients client.Repository) *Resolver {
	return &Resolver{clients: clients}
}

// OriginAllowed reports whether the origin is registered for the client.
// Only browser-facing clients may ever be granted CORS; server and service
// clients have no business calling these endpoints from a browser.
func (r *Resolver) OriginAllowed(clientID, origin string) bool {
	if clientID == "" || origin == "" {
		return false
	}

	cl, err := r.clients.FindByClientID(clientID)
	if err != nil {
		if !errors.Is(err, client.ErrClientNotFound) {
			slog.Warn("Failed to resolve client for CORS decision", "client_id", clientID, "error", err)
		}
		return false
	}

	if cl.ClientType != client.TypeClient {
		return false
	}

	return slices.Contains(cl.CORSOrigins, origin)
}
