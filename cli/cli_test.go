package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/relations"
	"gorm.io/relations/dialects/sqlite"
	"gorm.io/relations/logger"
	"gorm.io/relations/utils/tests"
)

const catalogFile = "../internal/catalog/testdata/catalog.yaml"

// newDatabase creates a sqlite database file loaded with the test fixtures
func newDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "relations.db")
	sqlDB, err := sql.Open(sqlite.DriverName, path)
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, tests.LoadFixtures(context.Background(), sqlDB))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestFetchCommand(t *testing.T) {
	dsn := newDatabase(t)

	stdout, _, err := run(t, "fetch", "creators", "--catalog", catalogFile, "--dsn", dsn)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"ID": 3, "Name": "Carol", "Creator": {"ID": 1, "Name": "Alice"}},
		{"ID": 2, "Name": "Bob", "Creator": {"ID": 1, "Name": "Alice"}}
	]`, stdout)

	t.Run("query flag", func(t *testing.T) {
		stdout, _, err := run(t, "fetch", "-q", "sent_messages", "--catalog", catalogFile, "--dsn", dsn, "--prepare-stmt")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"ID": 3, "Sent": [{"ID": 4, "Text": "note to self"}]}]`, stdout)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("RELATIONS_CATALOG", catalogFile)
		t.Setenv("RELATIONS_DSN", dsn)
		t.Setenv("RELATIONS_QUERY", "sent_messages")

		stdout, _, err := run(t, "fetch")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"ID": 3, "Sent": [{"ID": 4, "Text": "note to self"}]}]`, stdout)
	})

	t.Run("config file", func(t *testing.T) {
		config := filepath.Join(t.TempDir(), "relations.yaml")
		catalogPath, err := filepath.Abs(catalogFile)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(config, []byte("catalog: "+catalogPath+"\ndsn: "+dsn+"\nlog_level: info\nlog_format: logrus\n"), 0o644))

		stdout, stderr, err := run(t, "fetch", "creators", "--config", config)
		require.NoError(t, err)
		assert.Contains(t, stdout, `"Carol"`)
		assert.Contains(t, stderr, `"rows":2`, "info level traces the statement")
	})

	t.Run("required query matched no rows", func(t *testing.T) {
		catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(catalogPath, []byte(`
entities:
  - {name: User, fields: [{name: ID, type: int, primary: true}, {name: Name, type: string}]}
queries:
  nobody: {model: User, where: {Name: Nobody}, require: true}
`), 0o644))

		_, _, err := run(t, "fetch", "nobody", "--catalog", catalogPath, "--dsn", dsn, "--log-level", "silent")
		assert.ErrorIs(t, err, relations.ErrNoRowsMatched)
	})
}

func TestSQLCommand(t *testing.T) {
	stdout, _, err := run(t, "sql", "friend_of", "--catalog", catalogFile, "--dsn", ":memory:")
	require.NoError(t, err)
	assert.Equal(t, "SELECT `users`.`id` AS `users.ID`,`users_1`.`id` AS `users_1.ID` FROM `users` LEFT JOIN `friendships` `friendships_2` ON `friendships_2`.`friend_id` = `users`.`id` LEFT JOIN `users` `users_1` ON `users_1`.`id` = `friendships_2`.`user_id`\n", stdout)

	t.Run("postgres", func(t *testing.T) {
		stdout, _, err := run(t, "sql", "sent_messages", "--catalog", catalogFile, "--dialect", "postgres", "--dsn", "postgres://relations@localhost:5432/relations")
		require.NoError(t, err)
		assert.Equal(t, `SELECT "users"."id" AS "users.ID","messages_1"."id" AS "messages_1.ID","messages_1"."text" AS "messages_1.Text" FROM "users" LEFT JOIN "messages" "messages_1" ON "messages_1"."sender_id" = "users"."id" WHERE "users"."name" = $1 ORDER BY "messages_1"."id"`+"\n-- vars: [Carol]\n", stdout)
	})

	t.Run("explain", func(t *testing.T) {
		stdout, _, err := run(t, "sql", "sent_messages", "--catalog", catalogFile, "--dialect", "postgres", "--dsn", "postgres://relations@localhost:5432/relations", "--explain")
		require.NoError(t, err)
		assert.Contains(t, stdout, `WHERE "users"."name" = 'Carol' ORDER BY`)
	})
}

func TestCommandErrors(t *testing.T) {
	results := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "catalog", args: []string{"sql", "creators", "--dsn", ":memory:"}, msg: "catalog file required, set --catalog or RELATIONS_CATALOG"},
		{name: "dsn", args: []string{"sql", "creators", "--catalog", catalogFile}, msg: "dsn required, set --dsn or RELATIONS_DSN"},
		{name: "query", args: []string{"sql", "--catalog", catalogFile, "--dsn", ":memory:"}, msg: "query name required, pass it as argument or set --query"},
		{name: "unknown query", args: []string{"sql", "missing", "--catalog", catalogFile, "--dsn", ":memory:"}, msg: "unknown query: missing"},
		{name: "dialect", args: []string{"sql", "creators", "--catalog", catalogFile, "--dsn", ":memory:", "--dialect", "mysql"}, msg: "failed to open database: unsupported dialect: mysql"},
		{name: "log level", args: []string{"sql", "creators", "--catalog", catalogFile, "--dsn", ":memory:", "--log-level", "debug"}, msg: "failed to open database: unsupported log level: debug"},
		{name: "log format", args: []string{"sql", "creators", "--catalog", catalogFile, "--dsn", ":memory:", "--log-format", "xml"}, msg: "failed to open database: unsupported log format: xml"},
	}

	for _, result := range results {
		t.Run(result.name, func(t *testing.T) {
			_, _, err := run(t, result.args...)
			assert.EqualError(t, err, result.msg)
		})
	}

	_, _, err := run(t, "sql", "creators", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLogger(t *testing.T) {
	for _, format := range []string{"text", "zerolog", "logrus", "zap", "slog"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := (&Config{LogFormat: format, LogLevel: "warn"}).logger(&buf)
			require.NoError(t, err)

			l.Warn(context.Background(), "%v: replaces the selected field", "User")
			assert.Contains(t, buf.String(), "replaces the selected field")

			l.Info(context.Background(), "hidden")
			assert.NotContains(t, buf.String(), "hidden")
		})
	}

	level, err := parseLogLevel("INFO")
	require.NoError(t, err)
	assert.Equal(t, logger.Info, level)
}
