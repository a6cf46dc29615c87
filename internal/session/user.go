package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tanktools/tanktools/internal/rbac"
)

const activeValue = "true"

// LoadUser returns the signed-in user. A missing active flag or user record
// is ErrNoSession; a stored record that cannot be parsed wraps
// rbac.ErrMalformedUserRecord.
func LoadUser(ctx context.Context, store Store) (rbac.UserRecord, error) {
	if store == nil {
		return rbac.UserRecord{}, ErrNoSession
	}
	active, ok, err := store.Get(ctx, KeyActive)
	if err != nil {
		return rbac.UserRecord{}, fmt.Errorf("session: read active flag: %w", err)
	}
	if !ok || active != activeValue {
		return rbac.UserRecord{}, ErrNoSession
	}
	raw, ok, err := store.Get(ctx, KeyUser)
	if err != nil {
		return rbac.UserRecord{}, fmt.Errorf("session: read user: %w", err)
	}
	if !ok {
		return rbac.UserRecord{}, ErrNoSession
	}
	return rbac.ParseUserRecord(raw)
}

// Begin marks the store active for user.
func Begin(ctx context.Context, store Store, user rbac.UserRecord) error {
	if err := rbac.ValidateUserRecord(user); err != nil {
		return err
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("session: write user: %w", err)
	}
	if err := store.Set(ctx, KeyActive, activeValue); err != nil {
		return fmt.Errorf("session: write active flag: %w", err)
	}
	return nil
}

// Clear removes the signed-in user. Both keys are attempted even when the
// first removal fails.
func Clear(ctx context.Context, store Store) error {
	if store == nil {
		return nil
	}
	return errors.Join(store.Remove(ctx, KeyUser), store.Remove(ctx, KeyActive))
}
