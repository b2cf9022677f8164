package authorization

import (
	"slices"
	"time"

	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/google/uuid"
)

// EventType classifies a moment in the lifecycle of an authorization
type EventType string

const (
	// EventAuthorization is the first consent of a user to a client
	EventAuthorization EventType = "AUTHORIZATION"
	// EventScopeAddition is a consent to additional scopes for an already
	// authorized client
	EventScopeAddition EventType = "SCOPE_ADDITION"
	// EventRevocation is an explicit, user-initiated termination
	EventRevocation EventType = "REVOCATION"
)

// Event is one entry of the reconstructed authorization timeline. Derived
// from history records on demand; never persisted. Request context is
// omitted on revocation events.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	Scopes     []string  `json:"scopes"`
	ClientID   string    `json:"client_id"`
	ClientName string    `json:"client_name"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	OS         string    `json:"os,omitempty"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
}

// EventService reconstructs authorization timelines from the history store
type EventService struct {
	repo    Repository
	clients client.Repository
}

// NewEventService creates a new event reconstructor
func NewEventService(repo Repository, clients client.Repository) *EventService {
	return &EventService{
		repo:    repo,
		clients: clients,
	}
}

// Events returns the authorization timeline for a (user, client) pair,
// most recent event first. An empty history yields an empty list.
func (s *EventService) Events(userID uuid.UUID, clientID string) ([]Event, error) {
	history, err := s.repo.FindByPairChronological(userID, clientID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return []Event{}, nil
	}

	clientName := "Unknown client"
	if cl, err := s.clients.FindByClientID(clientID); err == nil {
		clientName = cl.ClientName
	}

	return buildEvents(history, clientName), nil
}

// buildEvents folds the chronologically ascending history into typed
// events. A superseded record flags the record that follows it as a scope
// addition; a revoked terminal record never does, so a grant that follows a
// revocation starts over as a plain authorization.
func buildEvents(history []Authorization, clientName string) []Event {
	events := make([]Event, 0, len(history)+1)

	nextIsScopeAddition := false
	for i := range history {
		item := &history[i]

		eventType := EventAuthorization
		if nextIsScopeAddition {
			eventType = EventScopeAddition
		}

		events = append(events, Event{
			ID:         item.ID,
			Type:       eventType,
			Timestamp:  item.GrantedAt,
			Scopes:     item.ScopeList(),
			ClientID:   item.ClientID,
			ClientName: clientName,
			IPAddress:  item.IPAddress,
			Browser:    item.Browser,
			DeviceType: item.DeviceType,
			OS:         item.OS,
			Country:    item.Country,
			City:       item.City,
		})

		if item.RevokedAt != nil {
			events = append(events, Event{
				ID:         item.ID,
				Type:       EventRevocation,
				Timestamp:  *item.RevokedAt,
				Scopes:     []string{},
				ClientID:   item.ClientID,
				ClientName: clientName,
			})
		}

		nextIsScopeAddition = item.State() == StateSuperseded
	}

	slices.Reverse(events)
	return events
}
