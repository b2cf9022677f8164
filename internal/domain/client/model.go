package client

import (
	"github.com/Voralis/grantly/internal/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ClientType categorizes how a registered application authenticates users
type ClientType string

const (
	// TypeClient is a browser-facing application; the user authenticates on
	// the client side. Only this type may use cross-origin calls.
	TypeClient ClientType = "client"
	// TypeServer is a confidential server-side application
	TypeServer ClientType = "server"
	// TypeService is a machine-to-machine application without users
	TypeService ClientType = "service"
)

// DashboardClientID is the well-known client id of the first-party
// dashboard seeded by grantly-cli admin init-root.
const DashboardClientID = "grantly-dashboard"

// Client represents a registered OAuth2 application
type Client struct {
	database.BaseModel
	ClientID      string         `gorm:"column:client_id;unique;not null;size:255"`
	ClientName    string         `gorm:"column:client_name;not null;size:255"`
	ClientSecret  string         `gorm:"column:client_secret;type:text"`
	ClientType    ClientType     `gorm:"column:client_type;not null;size:20"`
	Official      bool           `gorm:"column:official;default:false"`
	Active        bool           `gorm:"column:active;default:true"`
	OwnerID       uuid.UUID      `gorm:"column:owner_id;type:uuid"`
	RedirectURIs  pq.StringArray `gorm:"column:redirect_uris;type:text[]"`
	AllowedScopes pq.StringArray `gorm:"column:allowed_scopes;type:text[]"`
	CORSOrigins   pq.StringArray `gorm:"column:cors_origins;type:text[]"`
}

func (Client) TableName() string {
	return "oauth_clients"
}
