package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blogPlatform/internal/db"
	"blogPlatform/models"
)

// SettingRepository reads and writes system_configurations.
type SettingRepository struct {
	db *sql.DB
}

func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func scanSetting(row rowScanner) (*models.SystemConfiguration, error) {
	var s models.SystemConfiguration
	var updatedBy sql.NullInt64
	var updatedAt string
	if err := row.Scan(&s.Key, &s.Value, &s.Description, &updatedBy, &updatedAt); err != nil {
		return nil, err
	}
	s.UpdatedBy = int64Ptr(updatedBy)
	s.UpdatedAt = parseTS(updatedAt)
	return &s, nil
}

// List returns every setting ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.SystemConfiguration, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, description, updated_by, updated_at FROM system_configurations ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SystemConfiguration
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Get returns one setting or nil if the key is unknown.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.SystemConfiguration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	s, err := scanSetting(r.db.QueryRowContext(ctx, `SELECT key, value, description, updated_by, updated_at FROM system_configurations WHERE key = ?`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Set upserts a setting value. The description is kept when the key exists.
func (r *SettingRepository) Set(ctx context.Context, key, value string, adminID *int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO system_configurations (key, value, updated_by, updated_at) VALUES (?,?,?,?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
		key, value, nullInt(adminID), db.FormatTime(time.Now()))
	return err
}
