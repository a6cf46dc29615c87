package permstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanktools/tanktools/internal/rbac"
)

type pgStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore returns a Repository backed by the user_permissions table.
func NewPostgresStore(db *pgxpool.Pool) Repository {
	return &pgStore{db: db}
}

func (s *pgStore) FetchByKey(ctx context.Context, key string) (rbac.FeaturePermissions, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT document FROM user_permissions WHERE username = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.FeaturePermissions{}, ErrNotFound
	}
	if err != nil {
		return rbac.FeaturePermissions{}, fmt.Errorf("permstore: fetch %s: %w", key, err)
	}
	var doc rbac.FeaturePermissions
	if err := json.Unmarshal(raw, &doc); err != nil {
		return rbac.FeaturePermissions{}, fmt.Errorf("permstore: decode %s: %w", key, err)
	}
	return doc, nil
}

func (s *pgStore) Save(ctx context.Context, key string, doc rbac.FeaturePermissions) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO user_permissions (username, document, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (username) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`, key, raw)
	if err != nil {
		return fmt.Errorf("permstore: save %s: %w", key, err)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_permissions WHERE username = $1`, key)
	if err != nil {
		return fmt.Errorf("permstore: delete %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
