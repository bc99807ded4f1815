package postgres

import (
	"errors"
	"fmt"

	"coop-payments/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps constraint violations onto the storage-neutral sentinels in
// ports, keeping the driver error in the chain.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %w", ports.ErrDuplicateKey, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %w", ports.ErrForeignKeyViolation, err)
	}
	return err
}
