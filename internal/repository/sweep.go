package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/account-auth/internal/database"
)

// table is always one of the package constants, never user input.
func expiredIDs(ctx context.Context, db database.DBTX, table string, cutoff time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT id FROM "+table+" WHERE expires_at <= ?", cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deleteByIDs(ctx context.Context, db database.DBTX, table string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
