package sqlite

import (
	"database/sql"
	"errors"

	"github.com/ncruces/go-sqlite3"
)

// isDuplicateError checks if error is a unique or primary key violation
func isDuplicateError(err error) bool {
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		code := sqlErr.ExtendedCode()
		return code == sqlite3.CONSTRAINT_UNIQUE || code == sqlite3.CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isForeignKeyError checks if error is a foreign key violation
func isForeignKeyError(err error) bool {
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode() == sqlite3.CONSTRAINT_FOREIGNKEY
	}
	return false
}

func isNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
