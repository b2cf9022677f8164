package authorization

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Voralis/grantly/internal/domain/auth"
	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/Voralis/grantly/internal/domain/user"
	"github.com/Voralis/grantly/internal/metadata"
)

// newTestApp wires the handler behind a middleware that injects the given
// user as the authenticated identity, standing in for token verification.
func newTestApp(db *gorm.DB, identity *user.User, store *fakeTokenStore) *fiber.App {
	repo := NewRepository(db)
	userRepo := user.NewRepository(db)
	clientRepo := client.NewRepository(db)
	extractor := metadata.NewExtractor(&metadata.GeoIP{})

	handler := NewHandler(
		NewTracker(repo, userRepo),
		NewRevoker(repo, userRepo, store),
		NewEventService(repo, clientRepo),
		repo,
		clientRepo,
		extractor,
	)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if identity != nil {
			c.Locals(auth.IdentityKey, &auth.Identity{UserID: identity.ID})
		}
		return c.Next()
	})

	v1 := app.Group("/v1")
	v1.Post("/oauth/grants", handler.TrackGrant)
	v1.Get("/connections", handler.ListActive)
	v1.Get("/connections/inactive", handler.ListInactive)
	v1.Get("/connections/:clientID/events", handler.GetEvents)
	v1.Delete("/connections/:clientID", handler.Revoke)
	return app
}

func postGrant(t *testing.T, app *fiber.App, body any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal grant payload: %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/oauth/grants", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp.StatusCode
}

func TestHandler_TrackGrant(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	app := newTestApp(db, u, newFakeTokenStore())

	status := postGrant(t, app, GrantNotification{
		PrincipalName:     "alice",
		ClientID:          "app-1",
		Scopes:            []string{"openid"},
		AuthorizationCode: "code-1",
	})
	if status != fiber.StatusAccepted {
		t.Fatalf("Status = %d, want 202", status)
	}

	if _, err := NewRepository(db).FindActiveByPair(u.ID, "app-1"); err != nil {
		t.Errorf("Expected a tracked active record: %v", err)
	}
}

func TestHandler_TrackGrant_MissingFields(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(db, nil, newFakeTokenStore())

	status := postGrant(t, app, GrantNotification{
		ClientID:          "app-1",
		AuthorizationCode: "code-1",
	})
	if status != fiber.StatusBadRequest {
		t.Errorf("Status without principal_name = %d, want 400", status)
	}
}

func TestHandler_TrackGrant_UnknownPrincipalStillAccepted(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(db, nil, newFakeTokenStore())

	// Tracking is best-effort; a resolvable payload is accepted even when
	// nothing ends up recorded.
	status := postGrant(t, app, GrantNotification{
		PrincipalName:     "ghost",
		ClientID:          "app-1",
		Scopes:            []string{"openid"},
		AuthorizationCode: "code-1",
	})
	if status != fiber.StatusAccepted {
		t.Errorf("Status = %d, want 202", status)
	}
}

func TestHandler_ListActive(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	app := newTestApp(db, u, newFakeTokenStore())

	if err := db.Create(&client.Client{
		ClientID:   "app-1",
		ClientName: "Test App",
		ClientType: client.TypeClient,
		Active:     true,
	}).Error; err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	postGrant(t, app, GrantNotification{
		PrincipalName:     "alice",
		ClientID:          "app-1",
		Scopes:            []string{"openid", "profile"},
		AuthorizationCode: "code-1",
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/connections", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result struct {
		Success bool                 `json:"success"`
		Data    []ConnectionResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("Expected 1 connection, got %d", len(result.Data))
	}
	conn := result.Data[0]
	if conn.ClientName != "Test App" {
		t.Errorf("ClientName = %q, want %q", conn.ClientName, "Test App")
	}
	if !conn.Active {
		t.Error("Connection should be active")
	}
}

func TestHandler_ListActive_Unauthenticated(t *testing.T) {
	db := setupTestDB(t)
	app := newTestApp(db, nil, newFakeTokenStore())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/connections", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", resp.StatusCode)
	}
}

func TestHandler_Revoke(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	app := newTestApp(db, u, newFakeTokenStore())

	postGrant(t, app, GrantNotification{
		PrincipalName:     "alice",
		ClientID:          "app-1",
		Scopes:            []string{"openid"},
		AuthorizationCode: "code-1",
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/connections/app-1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result struct {
		Data struct {
			Revoked bool `json:"revoked"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Data.Revoked {
		t.Error("Expected revoked=true")
	}

	// Second revocation reports false but still succeeds
	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/connections/app-1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Second revoke status = %d, want 200", resp.StatusCode)
	}
	body, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Data.Revoked {
		t.Error("Second revoke should report revoked=false")
	}
}

func TestHandler_GetEvents(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	app := newTestApp(db, u, newFakeTokenStore())

	postGrant(t, app, GrantNotification{
		PrincipalName:     "alice",
		ClientID:          "app-1",
		Scopes:            []string{"openid"},
		AuthorizationCode: "code-1",
	})
	postGrant(t, app, GrantNotification{
		PrincipalName:     "alice",
		ClientID:          "app-1",
		Scopes:            []string{"openid", "email"},
		AuthorizationCode: "code-2",
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/connections/app-1/events", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result struct {
		Data []Event `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result.Data) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result.Data))
	}
	if result.Data[0].Type != EventScopeAddition || result.Data[1].Type != EventAuthorization {
		t.Errorf("Event types = %v, %v; want SCOPE_ADDITION then AUTHORIZATION",
			result.Data[0].Type, result.Data[1].Type)
	}
}
