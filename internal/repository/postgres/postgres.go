// Package postgres implements the repository ports on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, db database.DBTX, fn func(tx pgx.Tx) error) (txErr error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if txErr == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			txErr = errors.Join(txErr, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// money rebuilds a Money from a NUMERIC::text column and its currency code.
func money(amount, currency string) (domain.Money, error) {
	m, err := domain.ParseMoney(amount, currency)
	if err != nil {
		return domain.Money{}, fmt.Errorf("decode money %q %q: %w", amount, currency, err)
	}
	return m, nil
}

// isUniqueViolation reports a SQLSTATE 23505 error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
