// Package repository holds the MySQL data access code.  The sentinel errors
// below let handlers and services tell failure kinds apart without looking
// at driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.  For sessions it also
// covers rows that exist but have expired.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete cannot proceed because other rows
// still reference the target, e.g. a category used by entries.  Handlers map
// it to 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create on a unique key violation.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == mysqlDuplicateEntry }

func isReferenced(err error) bool { return mysqlCode(err) == mysqlRowIsReferenced }
