package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Credential is one live token issued by the token engine for a
// (client, principal) pair. The history store never reads these; revocation
// deletes them one by one.
type Credential struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Principal string    `json:"principal"`
	TokenType string    `json:"token_type"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store gives access to the live credentials held by the token engine
type Store interface {
	Save(ctx context.Context, cred *Credential) error
	ListByClientAndPrincipal(ctx context.Context, clientID, principal string) ([]Credential, error)
	Delete(ctx context.Context, cred *Credential) error
}

// redisStore keeps each credential as a JSON value with a TTL matching its
// expiry, plus a per-pair set of credential IDs for lookup.
type redisStore struct {
	client *redis.Client
}

// NewStore creates a Store backed by the given Redis client
func NewStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func credentialKey(id string) string {
	return "grant:token:" + id
}

func pairIndexKey(clientID, principal string) string {
	return fmt.Sprintf("grant:index:%s:%s", clientID, principal)
}

// Save stores a credential and registers it in the pair index. The value
// expires with the credential so revocation cleanup is bounded by token
// lifetime even if it never runs.
func (s *redisStore) Save(ctx context.Context, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	ttl := time.Until(cred.ExpiresAt)
	if ttl <= 0 {
		return errors.New("credential already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, credentialKey(cred.ID), data, ttl)
	pipe.SAdd(ctx, pairIndexKey(cred.ClientID, cred.Principal), cred.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// ListByClientAndPrincipal returns every live credential for the pair.
// Index entries whose credential has expired are pruned as they are found.
func (s *redisStore) ListByClientAndPrincipal(ctx context.Context, clientID, principal string) ([]Credential, error) {
	indexKey := pairIndexKey(clientID, principal)

	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read credential index: %w", err)
	}

	creds := make([]Credential, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, credentialKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			// Expired credential, drop the stale index entry
			s.client.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read credential %s: %w", id, err)
		}

		var cred Credential
		if err := json.Unmarshal([]byte(data), &cred); err != nil {
			return nil, fmt.Errorf("failed to decode credential %s: %w", id, err)
		}
		creds = append(creds, cred)
	}

	return creds, nil
}

// Delete removes a single credential and its index entry
func (s *redisStore) Delete(ctx context.Context, cred *Credential) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, credentialKey(cred.ID))
	pipe.SRem(ctx, pairIndexKey(cred.ClientID, cred.Principal), cred.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", cred.ID, err)
	}
	return nil
}
