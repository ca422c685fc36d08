// Package dialects opens the dialector registered under a name
package dialects

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/relations"
	"gorm.io/relations/dialects/postgres"
	"gorm.io/relations/dialects/sqlite"
)

// ErrUnsupportedDialect no dialector is registered under the name
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Names registered dialect names, aliases excluded
var Names = []string{"sqlite", "postgres"}

// Open returns the dialector registered as name connecting to dsn, an empty name is sqlite
func Open(name, dsn string) (relations.Dialector, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql", "pgx":
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
}
