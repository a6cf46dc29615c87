package tanks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanktools/tanktools/internal/rbac"
)

// Repository persists tank records per department.
type Repository interface {
	List(ctx context.Context, department string) (map[string]Record, error)
	Get(ctx context.Context, department, tankID string) (Record, error)
	Insert(ctx context.Context, department string, rec Record) error
	Update(ctx context.Context, department string, rec Record) error
	Delete(ctx context.Context, department, tankID string) error
}

const uniqueViolation = "23505"

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Repository backed by the live_tanks table.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, department string) (map[string]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT tank_id, data FROM live_tanks WHERE department = $1 ORDER BY tank_id`, rbac.FoldKey(department))
	if err != nil {
		return nil, fmt.Errorf("tanks: list: %w", err)
	}
	defer rows.Close()
	records := make(map[string]Record)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("tanks: scan: %w", err)
		}
		rec, err := decodeRecord(id, raw)
		if err != nil {
			return nil, err
		}
		records[id] = rec
	}
	return records, rows.Err()
}

func (r *repository) Get(ctx context.Context, department, tankID string) (Record, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM live_tanks WHERE department = $1 AND tank_id = $2`, rbac.FoldKey(department), tankID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tanks: get: %w", err)
	}
	return decodeRecord(tankID, raw)
}

func (r *repository) Insert(ctx context.Context, department string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO live_tanks (department, tank_id, data, updated_at) VALUES ($1, $2, $3, NOW())`, rbac.FoldKey(department), rec.ID(), raw)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("tanks: insert: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, department string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE live_tanks SET data = $3, updated_at = NOW() WHERE department = $1 AND tank_id = $2`, rbac.FoldKey(department), rec.ID(), raw)
	if err != nil {
		return fmt.Errorf("tanks: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, department, tankID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM live_tanks WHERE department = $1 AND tank_id = $2`, rbac.FoldKey(department), tankID)
	if err != nil {
		return fmt.Errorf("tanks: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeRecord(id string, raw []byte) (Record, error) {
	rec := Record{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("tanks: decode %s: %w", id, err)
		}
	}
	rec["id"] = id
	return rec, nil
}
