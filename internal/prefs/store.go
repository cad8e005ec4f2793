// Package prefs implements the keyed per-identity settings store. Keys follow
// the "<feature>:<identity>:<field>" convention; identities without an account
// fall back to the "anonymous" bucket.
//
// Contract: the store is read on session start and written after every
// relevant change, and it is NOT exclusive across concurrent session
// instances for the same identity (two open clients race). The documented
// resolution is last-writer-wins with the row's UpdatedAt as the only
// version stamp; callers needing stronger guarantees must layer their own
// merge rule on top.
package prefs

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/repo"
)

// AnonymousIdentity is the bucket used when no identity is available.
const AnonymousIdentity = "anonymous"

// Store reads and writes keyed preference values.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store backed by the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Key builds the canonical "<feature>:<identity>:<field>" key. An empty
// identity maps to the anonymous bucket.
func Key(feature, identity, field string) string {
	if strings.TrimSpace(identity) == "" {
		identity = AnonymousIdentity
	}
	return feature + ":" + identity + ":" + field
}

// GetString returns the stored value for a key, or def when the key has
// never been written.
func (s *Store) GetString(ctx context.Context, feature, identity, field, def string) (string, error) {
	v, err := repo.GetPreference(ctx, s.db, Key(feature, identity, field))
	if errors.Is(err, repo.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}

// SetString stores a value under a key, overwriting any prior value.
func (s *Store) SetString(ctx context.Context, feature, identity, field, value string) error {
	return repo.SetPreference(ctx, s.db, Key(feature, identity, field), value)
}

// GetBool returns the stored flag for a key, or def when unset.
func (s *Store) GetBool(ctx context.Context, feature, identity, field string, def bool) (bool, error) {
	v, err := repo.GetPreference(ctx, s.db, Key(feature, identity, field))
	if errors.Is(err, repo.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v == "true", nil
}

// SetBool stores a flag under a key.
func (s *Store) SetBool(ctx context.Context, feature, identity, field string, value bool) error {
	v := "false"
	if value {
		v = "true"
	}
	return repo.SetPreference(ctx, s.db, Key(feature, identity, field), v)
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, feature, identity, field string) error {
	return repo.DeletePreference(ctx, s.db, Key(feature, identity, field))
}
