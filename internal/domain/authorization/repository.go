package authorization

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface for authorization history operations
type Repository interface {
	Create(auth *Authorization) error
	FindActiveByPair(userID uuid.UUID, clientID string) (*Authorization, error)
	FindActiveByPairForUpdate(userID uuid.UUID, clientID string) (*Authorization, error)
	FindByPairChronological(userID uuid.UUID, clientID string) ([]Authorization, error)
	FindActiveByUser(userID uuid.UUID) ([]Authorization, error)
	FindInactiveWithoutActiveByUser(userID uuid.UUID) ([]Authorization, error)
	MarkSuperseded(id uuid.UUID) error
	MarkRevoked(id uuid.UUID, at time.Time) error
	Transaction(fn func(Repository) error) error
}

// repository struct for authorization history operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new authorization history repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create appends a new history record
func (r *repository) Create(auth *Authorization) error {
	return r.db.Create(auth).Error
}

// FindActiveByPair finds the currently active authorization for a
// (user, client) pair. There is at most one per pair.
func (r *repository) FindActiveByPair(userID uuid.UUID, clientID string) (*Authorization, error) {
	var auth Authorization
	err := r.db.
		Where("user_id = ? AND client_id = ? AND is_active = true", userID, clientID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// FindActiveByPairForUpdate is FindActiveByPair with a row lock. Must run
// inside Transaction; it serializes concurrent decide-then-write sequences
// for the same pair.
func (r *repository) FindActiveByPairForUpdate(userID uuid.UUID, clientID string) (*Authorization, error) {
	var auth Authorization
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND client_id = ? AND is_active = true", userID, clientID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// FindByPairChronological returns the full history for a pair ordered by
// grant time ascending, including inactive and revoked records.
func (r *repository) FindByPairChronological(userID uuid.UUID, clientID string) ([]Authorization, error) {
	var auths []Authorization
	err := r.db.
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Order("granted_at ASC").
		Find(&auths).Error
	if err != nil {
		return nil, err
	}
	return auths, nil
}

// FindActiveByUser returns all active authorizations of a user, most recent first
func (r *repository) FindActiveByUser(userID uuid.UUID) ([]Authorization, error) {
	var auths []Authorization
	err := r.db.
		Where("user_id = ? AND is_active = true", userID).
		Order("granted_at DESC").
		Find(&auths).Error
	if err != nil {
		return nil, err
	}
	return auths, nil
}

// inactiveWithoutActiveQuery finds, per client, the most recent inactive
// record for clients where the user has no active authorization at all.
// Set difference first, then latest-per-group via DISTINCT ON.
const inactiveWithoutActiveQuery = `
WITH inactive_pairs AS (
    SELECT DISTINCT user_id, client_id
    FROM authorization_history
    WHERE is_active = false

    EXCEPT

    SELECT DISTINCT user_id, client_id
    FROM authorization_history
    WHERE is_active = true
)
SELECT DISTINCT ON (h.user_id, h.client_id) h.*
FROM authorization_history h
JOIN inactive_pairs ip
  ON h.user_id = ip.user_id AND h.client_id = ip.client_id
WHERE h.user_id = ?
ORDER BY h.user_id, h.client_id, h.revoked_at DESC NULLS LAST, h.granted_at DESC
`

// FindInactiveWithoutActiveByUser returns one most-recent inactive record
// per client, excluding clients that currently have an active record.
func (r *repository) FindInactiveWithoutActiveByUser(userID uuid.UUID) ([]Authorization, error) {
	var auths []Authorization
	if err := r.db.Raw(inactiveWithoutActiveQuery, userID).Scan(&auths).Error; err != nil {
		return nil, err
	}
	return auths, nil
}

// MarkSuperseded flips a record inactive without touching revoked_at
func (r *repository) MarkSuperseded(id uuid.UUID) error {
	return r.db.Model(&Authorization{}).
		Where("id = ? AND is_active = true", id).
		Update("is_active", false).Error
}

// MarkRevoked stamps revoked_at and flips the record inactive
func (r *repository) MarkRevoked(id uuid.UUID, at time.Time) error {
	return r.db.Model(&Authorization{}).
		Where("id = ? AND is_active = true", id).
		Updates(map[string]any{
			"revoked_at": at,
			"is_active":  false,
		}).Error
}

// Transaction runs fn against a repository bound to a database transaction
func (r *repository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}
