package errtranslator

import (
	"errors"
	"strings"

	sqlite3 "modernc.org/sqlite"
)

var sqliteErrCodes = map[string]int{
	"error": 1,
}

type SqliteErrTranslator struct{}

func (s *SqliteErrTranslator) Translate(err error) error {
	var sqliteErr *sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code()&0xff != sqliteErrCodes["error"] {
		return err
	}

	message := sqliteErr.Error()
	switch {
	case strings.Contains(message, "no such table"):
		return undefinedTable(sqliteErr.Code(), message, err)
	case strings.Contains(message, "no such column"):
		return undefinedColumn(sqliteErr.Code(), message, err)
	}
	return err
}
