// Package auth issues and verifies match join tokens. Tokens are
// random, handed to players out of band, and stored only as bcrypt
// hashes.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// TokenStore maps match IDs to hashed join tokens.
type TokenStore struct {
	cost int

	mu     sync.RWMutex
	hashes map[string][]byte // matchID -> bcrypt hash
}

// NewTokenStore creates a store hashing with the given bcrypt cost.
func NewTokenStore(cost int) *TokenStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &TokenStore{cost: cost, hashes: make(map[string][]byte)}
}

// Issue generates a join token for the match and returns it. Only the
// hash is retained.
func (ts *TokenStore) Issue(matchID string) (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), ts.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	ts.mu.Lock()
	ts.hashes[matchID] = hash
	ts.mu.Unlock()
	return token, nil
}

// Verify checks a presented token against the match's stored hash.
func (ts *TokenStore) Verify(matchID, token string) bool {
	ts.mu.RLock()
	hash, ok := ts.hashes[matchID]
	ts.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(token)) == nil
}

// Revoke drops the match's token.
func (ts *TokenStore) Revoke(matchID string) {
	ts.mu.Lock()
	delete(ts.hashes, matchID)
	ts.mu.Unlock()
}
