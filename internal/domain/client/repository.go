package client

import (
	"errors"

	"gorm.io/gorm"
)

// Repository interface for client registry lookups
type Repository interface {
	Create(c *Client) error
	FindByClientID(clientID string) (*Client, error)
	FindAll() ([]*Client, error)
}

// repository struct for client registry lookups
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new client repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create registers a new client
func (r *repository) Create(c *Client) error {
	return r.db.Create(c).Error
}

// FindByClientID gets a client by its public client_id
func (r *repository) FindByClientID(clientID string) (*Client, error) {
	var c Client
	if err := r.db.Where("client_id = ?", clientID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll gets all registered clients
func (r *repository) FindAll() ([]*Client, error) {
	var clients []*Client
	if err := r.db.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
