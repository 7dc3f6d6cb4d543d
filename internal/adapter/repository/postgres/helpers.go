package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// mapConcurrencyError translates a driver-level serialization failure or
// deadlock into domain.ErrConcurrency so the bus retries the unit of work
func mapConcurrencyError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", domain.ErrConcurrency, err)
		}
	}
	return err
}

// parseDecimal converts a scanned DECIMAL column
func parseDecimal(raw, column string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return value, nil
}

// parseNullUUID converts a scanned nullable uuid column
func parseNullUUID(raw sql.NullString, column string) (*uuid.UUID, error) {
	if !raw.Valid {
		return nil, nil
	}
	value, err := uuid.Parse(raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return &value, nil
}

// nullable adapts an optional uuid for an INSERT/UPDATE argument
func nullable(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// nullableInt adapts an optional int for an INSERT/UPDATE argument
func nullableInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

// nullableString adapts an optional string for an INSERT/UPDATE argument
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// nullableDecimal adapts an optional decimal for an INSERT/UPDATE argument
func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
