package cors

import (
	"testing"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/Voralis/grantly/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db := utils.SetupTestDB(t, &client.Client{})
	db.Exec("DELETE FROM oauth_clients")
	return db
}

func createClient(t *testing.T, db *gorm.DB, clientID string, clientType client.ClientType, origins ...string) {
	c := &client.Client{
		ClientID:    clientID,
		ClientName:  clientID,
		ClientType:  clientType,
		Active:      true,
		CORSOrigins: pq.StringArray(origins),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}
}

func TestResolver_OriginAllowed(t *testing.T) {
	db := setupTestDB(t)
	createClient(t, db, "spa-app", client.TypeClient, "https://app.example.com", "https://staging.example.com")
	createClient(t, db, "backend-app", client.TypeServer, "https://app.example.com")
	createClient(t, db, "worker-app", client.TypeService)

	resolver := NewResolver(client.NewRepository(db))

	tests := []struct {
		name     string
		clientID string
		origin   string
		want     bool
	}{
		{"registered origin", "spa-app", "https://app.example.com", true},
		{"second registered origin", "spa-app", "https://staging.example.com", true},
		{"unregistered origin", "spa-app", "https://evil.example.com", false},
		{"server client never gets CORS", "backend-app", "https://app.example.com", false},
		{"service client never gets CORS", "worker-app", "https://app.example.com", false},
		{"unknown client", "no-such-app", "https://app.example.com", false},
		{"empty client id", "", "https://app.example.com", false},
		{"empty origin", "spa-app", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.OriginAllowed(tt.clientID, tt.origin); got != tt.want {
				t.Errorf("OriginAllowed(%q, %q) = %v, want %v", tt.clientID, tt.origin, got, tt.want)
			}
		})
	}
}
