package database

import (
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool that satisfies DBTX. Call
// ExpectationsWereMet at the end of each test.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}

// ExpectMigrations queues the statements RunMigrations issues for the
// *.up.sql files in fsys. Versions listed in applied are reported as already
// recorded in schema_migrations and are skipped.
func ExpectMigrations(mock pgxmock.PgxPoolIface, fsys fs.FS, applied ...string) error {
	names, err := MigrationFiles(fsys)
	if err != nil {
		return err
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	for _, name := range names {
		done := slices.Contains(applied, name)
		mock.ExpectQuery("SELECT EXISTS").WithArgs(name).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(done))
		if done {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		first, _, _ := strings.Cut(strings.TrimSpace(string(content)), "\n")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(first)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
	}
	return nil
}
