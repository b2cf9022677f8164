package authorization

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func insertRecord(t *testing.T, db *gorm.DB, userID uuid.UUID, clientID string, grantedAt time.Time, active bool, revokedAt *time.Time) *Authorization {
	a := &Authorization{
		UserID:           userID,
		ClientID:         clientID,
		AuthorizedScopes: "openid",
		GrantedAt:        grantedAt,
		RevokedAt:        revokedAt,
		IsActive:         active,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Failed to insert history record: %v", err)
	}
	return a
}

func TestRepository_FindActiveByUser_Ordering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	u := createTestUser(t, db, "alice")
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	insertRecord(t, db, u.ID, "app-old", t0, true, nil)
	insertRecord(t, db, u.ID, "app-new", t0.Add(time.Hour), true, nil)
	insertRecord(t, db, u.ID, "app-gone", t0.Add(30*time.Minute), false, nil)

	active, err := repo.FindActiveByUser(u.ID)
	if err != nil {
		t.Fatalf("FindActiveByUser failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active records, got %d", len(active))
	}
	if active[0].ClientID != "app-new" || active[1].ClientID != "app-old" {
		t.Errorf("Active records not ordered most recent first: %s, %s",
			active[0].ClientID, active[1].ClientID)
	}
}

func TestRepository_FindInactiveWithoutActiveByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	u := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	revoked := t0.Add(2 * time.Hour)

	// app-a is still active: superseded record must not surface
	insertRecord(t, db, u.ID, "app-a", t0, false, nil)
	insertRecord(t, db, u.ID, "app-a", t0.Add(time.Hour), true, nil)

	// app-b was revoked: surfaces with its most recent record
	insertRecord(t, db, u.ID, "app-b", t0, false, &revoked)

	// app-c has a superseding chain that ended in revocation: only the
	// latest record per client is returned
	insertRecord(t, db, u.ID, "app-c", t0, false, nil)
	insertRecord(t, db, u.ID, "app-c", t0.Add(time.Hour), false, &revoked)

	// another user's inactive history must never leak in
	insertRecord(t, db, other.ID, "app-d", t0, false, &revoked)

	inactive, err := repo.FindInactiveWithoutActiveByUser(u.ID)
	if err != nil {
		t.Fatalf("FindInactiveWithoutActiveByUser failed: %v", err)
	}

	if len(inactive) != 2 {
		t.Fatalf("Expected 2 inactive connections, got %d", len(inactive))
	}

	byClient := make(map[string]*Authorization, len(inactive))
	for i := range inactive {
		byClient[inactive[i].ClientID] = &inactive[i]
	}

	if _, ok := byClient["app-a"]; ok {
		t.Error("app-a has an active authorization and must not be listed")
	}
	if rec, ok := byClient["app-b"]; !ok {
		t.Error("app-b should be listed")
	} else if rec.RevokedAt == nil {
		t.Error("app-b record should be the revoked one")
	}
	if rec, ok := byClient["app-c"]; !ok {
		t.Error("app-c should be listed")
	} else if rec.RevokedAt == nil {
		t.Error("app-c should surface its revoked terminal record, not the superseded one")
	}
}

func TestRepository_MarkSuperseded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	u := createTestUser(t, db, "alice")
	rec := insertRecord(t, db, u.ID, "app-1", time.Now().UTC(), true, nil)

	if err := repo.MarkSuperseded(rec.ID); err != nil {
		t.Fatalf("MarkSuperseded failed: %v", err)
	}

	var reloaded Authorization
	if err := db.First(&reloaded, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("Failed to reload record: %v", err)
	}
	if reloaded.IsActive {
		t.Error("Superseded record should be inactive")
	}
	if reloaded.RevokedAt != nil {
		t.Error("MarkSuperseded must not touch revoked_at")
	}
	if reloaded.State() != StateSuperseded {
		t.Errorf("State = %v, want StateSuperseded", reloaded.State())
	}
}

func TestRepository_MarkRevoked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	u := createTestUser(t, db, "alice")
	rec := insertRecord(t, db, u.ID, "app-1", time.Now().UTC(), true, nil)

	at := time.Now().UTC()
	if err := repo.MarkRevoked(rec.ID, at); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}

	var reloaded Authorization
	if err := db.First(&reloaded, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("Failed to reload record: %v", err)
	}
	if reloaded.State() != StateRevoked {
		t.Errorf("State = %v, want StateRevoked", reloaded.State())
	}
	if reloaded.RevokedAt == nil {
		t.Fatal("revoked_at should be set")
	}
}
