package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *Record) error {
	query := `INSERT INTO uploads (media_id, filename, sha256, byte_size, pixel_width, pixel_height, group_id, duplicate, uploaded_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.MediaID, rec.Filename, rec.SHA256, rec.ByteSize, rec.Width, rec.Height, rec.GroupID, rec.Duplicate, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Record, error) {
	query := `select media_id, filename, sha256, byte_size, pixel_width, pixel_height, group_id, duplicate, uploaded_at
			from uploads order by uploaded_at desc`
	args := []any{}
	if limit > 0 {
		query += ` limit ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select upload records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.MediaID, &rec.Filename, &rec.SHA256, &rec.ByteSize,
			&rec.Width, &rec.Height, &rec.GroupID, &rec.Duplicate, &rec.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) FindByHash(ctx context.Context, sha256 string) (*Record, error) {
	query := `select media_id, filename, sha256, byte_size, pixel_width, pixel_height, group_id, duplicate, uploaded_at
			from uploads where sha256=? order by uploaded_at desc limit 1`
	row := r.db.QueryRowContext(ctx, query, sha256)

	rec := &Record{}
	err := row.Scan(&rec.MediaID, &rec.Filename, &rec.SHA256, &rec.ByteSize,
		&rec.Width, &rec.Height, &rec.GroupID, &rec.Duplicate, &rec.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}
