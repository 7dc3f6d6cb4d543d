package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserLister implements domain.UserLister over the pool. Users live outside
// this core, so active users are derived from active bank accounts.
type UserLister struct {
	db *DB
}

// NewUserLister creates a lister over the given database
func NewUserLister(db *DB) *UserLister {
	return &UserLister{db: db}
}

// ActiveUserIDs returns the distinct owners of active bank accounts
func (l *UserLister) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM bank_accounts WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active users: %w", err)
	}
	return ids, nil
}
