package errtranslator

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var postgresErrCodes = map[string]string{
	"undefinedTable":  "42P01",
	"undefinedColumn": "42703",
}

type PostgresErrTranslator struct{}

func (p *PostgresErrTranslator) Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case postgresErrCodes["undefinedTable"]:
		return undefinedTable(pgErr.Code, pgErr.Message, err)
	case postgresErrCodes["undefinedColumn"]:
		return undefinedColumn(pgErr.Code, pgErr.Message, err)
	}
	return err
}
