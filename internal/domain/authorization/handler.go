package authorization

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Voralis/grantly/internal/domain/auth"
	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/Voralis/grantly/internal/metadata"
	"github.com/Voralis/grantly/internal/utils"
)

// Handler exposes the connections API and the internal grant hook
type Handler struct {
	tracker   *Tracker
	revoker   *Revoker
	events    *EventService
	repo      Repository
	clients   client.Repository
	extractor *metadata.Extractor
}

func NewHandler(tracker *Tracker, revoker *Revoker, events *EventService, repo Repository, clients client.Repository, extractor *metadata.Extractor) *Handler {
	return &Handler{
		tracker:   tracker,
		revoker:   revoker,
		events:    events,
		repo:      repo,
		clients:   clients,
		extractor: extractor,
	}
}

// TrackGrant receives grant notifications from the token engine. It always
// answers 202 once the payload is well-formed; tracking failures must never
// bubble back into the grant flow.
func (h *Handler) TrackGrant(c *fiber.Ctx) error {
	var grant GrantNotification
	if err := c.BodyParser(&grant); err != nil {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_BODY", "Malformed grant notification", fiber.StatusBadRequest))
	}
	if grant.PrincipalName == "" || grant.ClientID == "" {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_BODY", "principal_name and client_id are required", fiber.StatusBadRequest))
	}

	meta := h.extractor.Extract(c)
	h.tracker.TrackIfNew(&grant, meta)

	return utils.SuccessResponse(c, nil, "Grant notification accepted", fiber.StatusAccepted)
}

// ListActive returns the caller's active connections, most recent first
func (h *Handler) ListActive(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	history, err := h.repo.FindActiveByUser(identity.UserID)
	if err != nil {
		slog.Error("Failed to list active connections", "user_id", identity.UserID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, h.toResponses(history), "Active connections retrieved")
}

// ListInactive returns the caller's past connections for applications that
// no longer hold an active authorization.
func (h *Handler) ListInactive(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	history, err := h.repo.FindInactiveWithoutActiveByUser(identity.UserID)
	if err != nil {
		slog.Error("Failed to list inactive connections", "user_id", identity.UserID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, h.toResponses(history), "Inactive connections retrieved")
}

// GetEvents returns the reconstructed event timeline for one application
func (h *Handler) GetEvents(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	clientID := c.Params("clientID")
	if clientID == "" {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	events, err := h.events.Events(identity.UserID, clientID)
	if err != nil {
		slog.Error("Failed to build authorization events",
			"user_id", identity.UserID, "client_id", clientID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, events, "Authorization events retrieved")
}

// Revoke revokes the caller's active authorization for an application
func (h *Handler) Revoke(c *fiber.Ctx) error {
	identity := auth.GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	clientID := c.Params("clientID")
	if clientID == "" {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	revoked, err := h.revoker.Revoke(c.UserContext(), identity.UserID, clientID)
	if err != nil {
		slog.Error("Failed to revoke authorization",
			"user_id", identity.UserID, "client_id", clientID, "error", err)
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, fiber.Map{"revoked": revoked}, "Revocation processed")
}

// toResponses converts history records into DTOs, resolving client display
// names once per distinct client.
func (h *Handler) toResponses(history []Authorization) []*ConnectionResponse {
	names := make(map[string]string)
	responses := make([]*ConnectionResponse, 0, len(history))

	for i := range history {
		item := &history[i]
		name, ok := names[item.ClientID]
		if !ok {
			name = h.clientName(item.ClientID)
			names[item.ClientID] = name
		}
		responses = append(responses, item.ToResponse(name))
	}

	return responses
}

func (h *Handler) clientName(clientID string) string {
	cl, err := h.clients.FindByClientID(clientID)
	if err != nil {
		if !errors.Is(err, client.ErrClientNotFound) {
			slog.Warn("Failed to resolve client name", "client_id", clientID, "error", err)
		}
		return "Unknown client"
	}
	return cl.ClientName
}
