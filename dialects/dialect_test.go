package dialects_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/relations/dialects"
)

func TestOpen(t *testing.T) {
	results := []struct {
		name string
		want string
	}{
		{name: "", want: "sqlite"},
		{name: "sqlite3", want: "sqlite"},
		{name: "SQLite", want: "sqlite"},
		{name: "postgres", want: "postgres"},
		{name: "pgx", want: "postgres"},
	}

	for _, result := range results {
		dialector, err := dialects.Open(result.name, "dsn")
		require.NoError(t, err, result.name)
		assert.Equal(t, result.want, dialector.Name())
	}

	_, err := dialects.Open("mysql", "dsn")
	assert.ErrorIs(t, err, dialects.ErrUnsupportedDialect)
	assert.EqualError(t, err, "unsupported dialect: mysql")
}
