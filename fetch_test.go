package relations_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jinzhu/now"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/relations"
	"gorm.io/relations/clause"
	"gorm.io/relations/logger"
	"gorm.io/relations/utils/tests"
)

type records = []relations.Record

func user(id int64, name string) relations.Record {
	return relations.Record{"ID": id, "Name": name}
}

func group(id int64, name string) relations.Record {
	return relations.Record{"ID": id, "Name": name}
}

func message(id int64, text string) relations.Record {
	return relations.Record{"ID": id, "Text": text}
}

func with(record relations.Record, as string, value interface{}) relations.Record {
	record[as] = value
	return record
}

func TestFetchVia(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").LeftJoin(
		db.Model(m.Group).Fields("ID", "Name").Order("ID").Via(relations.Type(m.GroupMembership)),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(1, "Alice"), "Group", records{group(1, "Admins"), group(2, "Staff")}),
		with(user(2, "Bob"), "Group", records{group(2, "Staff")}),
		with(user(3, "Carol"), "Group", records{group(1, "Admins")}),
		with(user(4, "Dave"), "Group", nil),
	}, results)

	t.Run("reverse", func(t *testing.T) {
		results, err := db.Model(m.Group).Fields("ID", "Name").Order("ID").LeftJoin(
			db.Model(m.User).Fields("ID", "Name").As("Members").Order("ID").Via(relations.Type(m.GroupMembership)),
		).Fetch(ctx)
		require.NoError(t, err)

		assert.Equal(t, records{
			with(group(1, "Admins"), "Members", records{user(1, "Alice"), user(3, "Carol")}),
			with(group(2, "Staff"), "Members", records{user(1, "Alice"), user(2, "Bob")}),
			with(group(3, "Empty"), "Members", nil),
		}, results)
	})

	t.Run("inner join", func(t *testing.T) {
		results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").InnerJoin(
			db.Model(m.Group).Fields("ID", "Name").Where(map[string]interface{}{"Name": "Staff"}).Via(
				db.Model(m.GroupMembership).JoinType(clause.InnerJoin),
			),
		).Fetch(ctx)
		require.NoError(t, err)

		assert.Equal(t, records{
			with(user(1, "Alice"), "Group", records{group(2, "Staff")}),
			with(user(2, "Bob"), "Group", records{group(2, "Staff")}),
		}, results)
	})
}

func TestFetchSelfReference(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").LeftJoin(
		db.Model(m.User).Fields("ID", "Name").As("Creator").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(1, "Alice"), "Creator", nil),
		with(user(2, "Bob"), "Creator", user(1, "Alice")),
		with(user(3, "Carol"), "Creator", user(1, "Alice")),
		with(user(4, "Dave"), "Creator", user(2, "Bob")),
	}, results)

	t.Run("via self referencing junction", func(t *testing.T) {
		results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").LeftJoin(
			db.Model(m.User).Fields("ID", "Name").As("Friends").Order("ID").Via(relations.Type(m.Friendship)),
		).Fetch(ctx)
		require.NoError(t, err)

		assert.Equal(t, records{
			with(user(1, "Alice"), "Friends", records{user(2, "Bob"), user(3, "Carol")}),
			with(user(2, "Bob"), "Friends", records{user(3, "Carol")}),
			with(user(3, "Carol"), "Friends", nil),
			with(user(4, "Dave"), "Friends", nil),
		}, results)
	})
}

func TestFetchAmbiguousReferences(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	// both references are required to match
	results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").InnerJoin(
		db.Model(m.Message).Fields("ID", "Text"),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(3, "Carol"), "Message", records{message(4, "note to self")}),
	}, results)

	results, err = db.Model(m.User).Fields("ID", "Name").Order("ID").InnerJoin(
		db.Model(m.Message).Fields("ID", "Text").As("Inbox").On(relations.Name("ReceiverID")).Order("ID"),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(1, "Alice"), "Inbox", records{message(2, "hi alice")}),
		with(user(2, "Bob"), "Inbox", records{message(1, "hi bob")}),
		with(user(3, "Carol"), "Inbox", records{message(3, "hi carol"), message(4, "note to self")}),
	}, results)
}

func TestFetchFirst(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "Name").Order("ID").LeftJoin(
		db.Model(m.Message).Fields("ID", "Text").As("FirstMessage").On(relations.Name("SenderID")).Order("ID").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(1, "Alice"), "FirstMessage", message(1, "hi bob")),
		with(user(2, "Bob"), "FirstMessage", message(2, "hi alice")),
		with(user(3, "Carol"), "FirstMessage", message(4, "note to self")),
		with(user(4, "Dave"), "FirstMessage", nil),
	}, results)
}

func TestFetchNested(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "Name").Where(map[string]interface{}{"Name": "Alice"}).LeftJoin(
		db.Model(m.Group).Fields("ID", "Name").Order("ID").Via(relations.Type(m.GroupMembership)).LeftJoin(
			db.Model(m.User).Fields("ID", "Name").As("Members").Order("ID").Via(relations.Type(m.GroupMembership)),
		),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(user(1, "Alice"), "Group", records{
			with(group(1, "Admins"), "Members", records{user(1, "Alice"), user(3, "Carol")}),
			with(group(2, "Staff"), "Members", records{user(1, "Alice"), user(2, "Bob")}),
		}),
	}, results)
}

func TestFetchSiblingJoins(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "Name").Where(map[string]interface{}{"ID": 1}).LeftJoin(
		db.Model(m.Group).Fields("ID", "Name").Order("ID").Via(relations.Type(m.GroupMembership)),
		db.Model(m.Message).Fields("ID", "Text").As("Sent").On(relations.Name("SenderID")).Order("ID"),
		db.Model(m.User).Fields("ID", "Name").As("Creator").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	// rows are the cross product of groups and messages, each record is attached once
	require.Len(t, results, 1)
	assert.Equal(t, records{group(1, "Admins"), group(2, "Staff")}, results[0]["Group"])
	assert.Equal(t, records{message(1, "hi bob"), message(3, "hi carol")}, results[0]["Sent"])
	assert.Nil(t, results[0]["Creator"])
}

func TestFetchDeferredReferences(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	image := func(id int64, url string) relations.Record {
		return relations.Record{"ID": id, "URL": url}
	}
	category := func(id int64, name string) relations.Record {
		return relations.Record{"ID": id, "Name": name}
	}

	results, err := db.Model(m.Image).Fields("ID", "URL").Order("ID").LeftJoin(
		db.Model(m.ImageCategory).Fields("ID", "Name").As("Category").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(image(1, "a.png"), "Category", category(1, "Cats")),
		with(image(2, "b.png"), "Category", category(1, "Cats")),
		with(image(3, "c.png"), "Category", nil),
	}, results)

	results, err = db.Model(m.ImageCategory).Fields("ID", "Name").Order("ID").LeftJoin(
		db.Model(m.Image).Fields("ID", "URL").As("Cover").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{
		with(category(1, "Cats"), "Cover", image(2, "b.png")),
		with(category(2, "Dogs"), "Cover", nil),
	}, results)
}

func TestFetchUniqueField(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("Name", "Email").Order("ID").LeftJoin(
		db.Model(m.Group).Fields("Name").Order("ID").Via(relations.Type(m.GroupMembership)),
	).Fetch(ctx)
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, "alice@example.com", results[0]["Email"])
	assert.Equal(t, records{{"Name": "Admins"}, {"Name": "Staff"}}, results[0]["Group"])

	_, err = db.Model(m.User).Fields("Name").LeftJoin(
		db.Model(m.Group).Fields("Name").Via(relations.Type(m.GroupMembership)),
	).Fetch(ctx)
	assert.ErrorIs(t, err, relations.ErrNoUniqueField)

	t.Run("disabled", func(t *testing.T) {
		results, err := db.Model(m.User).Fields("Name").EnsureUniqueField(false).Order("ID").LeftJoin(
			db.Model(m.Group).Fields("Name").Order("ID").Via(relations.Type(m.GroupMembership)),
		).Fetch(ctx)
		require.NoError(t, err)

		// records are not merged without a unique field
		assert.Equal(t, records{
			{"Name": "Alice", "Group": records{{"Name": "Admins"}}},
			{"Name": "Alice", "Group": records{{"Name": "Staff"}}},
			{"Name": "Bob", "Group": records{{"Name": "Staff"}}},
			{"Name": "Carol", "Group": records{{"Name": "Admins"}}},
			{"Name": "Dave", "Group": nil},
		}, results)
	})
}

func TestFetchRequire(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	t.Run("root", func(t *testing.T) {
		query := db.Model(m.User).Where(map[string]interface{}{"Name": "Nobody"}).Require()

		_, err := query.Fetch(ctx)
		assert.ErrorIs(t, err, relations.ErrNoRowsMatched)

		var noRows *relations.NoRowsMatchedError
		require.True(t, errors.As(err, &noRows))
		assert.Same(t, query, noRows.Query)
	})

	t.Run("join", func(t *testing.T) {
		groups := db.Model(m.Group).Via(relations.Type(m.GroupMembership)).Require()

		_, err := db.Model(m.User).Where(map[string]interface{}{"Name": "Dave"}).LeftJoin(groups).Fetch(ctx)

		var noRows *relations.NoRowsMatchedError
		require.True(t, errors.As(err, &noRows), "expected NoRowsMatchedError, got %v", err)
		assert.Same(t, groups, noRows.Query)
		assert.EqualError(t, err, "Group: no rows matched")
	})

	t.Run("join before parent", func(t *testing.T) {
		groups := db.Model(m.Group).Via(relations.Type(m.GroupMembership)).Require()

		_, err := db.Model(m.User).Where(map[string]interface{}{"Name": "Nobody"}).Require().LeftJoin(groups).Fetch(ctx)

		var noRows *relations.NoRowsMatchedError
		require.True(t, errors.As(err, &noRows))
		assert.Same(t, groups, noRows.Query)
	})

	t.Run("matched", func(t *testing.T) {
		results, err := db.Model(m.User).Where(map[string]interface{}{"Name": "Alice"}).Require().LeftJoin(
			db.Model(m.Group).Via(relations.Type(m.GroupMembership)).Require(),
		).Fetch(ctx)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("not required", func(t *testing.T) {
		results, err := db.Model(m.User).Where(map[string]interface{}{"Name": "Nobody"}).Fetch(ctx)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestFetchCoerceValues(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		m   = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID", "CreatedAt", "CreatorID").Where(map[string]interface{}{"ID": 1}).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	createdAt, ok := results[0]["CreatedAt"].(time.Time)
	require.True(t, ok, "CreatedAt should be a time.Time, got %T", results[0]["CreatedAt"])
	assert.True(t, createdAt.Equal(now.MustParse("2020-02-23 11:10:10")))
	assert.Nil(t, results[0]["CreatorID"])
}

func TestFetchDryRun(t *testing.T) {
	var (
		ctx      = context.Background()
		recorder = logger.Recorder.New()
		db       = tests.OpenTestDB(t, &relations.Config{DryRun: true, Logger: recorder})
		m        = tests.NewModels(nil)
	)

	results, err := db.Model(m.User).Fields("ID").Where(map[string]interface{}{"Name": "Alice"}).Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, results)

	assert.Equal(t, "SELECT `users`.`id` AS `users.ID` FROM `users` WHERE `users`.`name` = \"Alice\"", recorder.SQL)
	assert.Equal(t, int64(-1), recorder.RowsAffected)
}

func TestFetchTrace(t *testing.T) {
	var (
		ctx      = context.Background()
		recorder = logger.Recorder.New()
		db       = tests.OpenTestDB(t, nil)
		m        = tests.NewModels(nil)
	)

	results, err := db.Session(recorder).Model(m.User).Fields("ID").LeftJoin(
		db.Model(m.Group).Fields("ID").Via(relations.Type(m.GroupMembership)),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Len(t, results, 4)
	assert.Equal(t, int64(5), recorder.RowsAffected, "rows are counted before records are merged")
	assert.Contains(t, recorder.SQL, "LEFT JOIN `groups` `groups_1`")
	assert.NoError(t, recorder.Err)
}

func TestFetchWarnings(t *testing.T) {
	var (
		ctx = context.Background()
		buf bytes.Buffer
		l   = logrus.New()
		m   = tests.NewModels(nil)
	)

	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	db := tests.OpenTestDB(t, &relations.Config{Logger: logger.NewLogrusLogger(l, logger.Config{LogLevel: logger.Warn})})

	results, err := db.Model(m.User).Fields("ID", "Name").Where(map[string]interface{}{"ID": 2}).LeftJoin(
		db.Model(m.User).Fields("ID", "Name").As("Name").First(),
	).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, records{{"ID": int64(2), "Name": user(1, "Alice")}}, results)
	assert.True(t, strings.Contains(buf.String(), "replaces the selected field"), "expected a warning, got %v", buf.String())
}

func TestFetchPreparedStatements(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, &relations.Config{Logger: logger.Discard, PrepareStmt: true})
		m   = tests.NewModels(nil)
	)

	prepared, ok := db.ConnPool.(*relations.PreparedStmtDB)
	require.True(t, ok, "conn pool should be wrapped, got %T", db.ConnPool)

	for i := 0; i < 3; i++ {
		results, err := db.Model(m.User).Fields("ID").Where(map[string]interface{}{"ID": i + 1}).Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, records{{"ID": int64(i + 1)}}, results)
	}

	assert.Equal(t, 1, prepared.Stmts.Len())
	prepared.Close()
	assert.Equal(t, 0, prepared.Stmts.Len())
}

func TestFetchCanceled(t *testing.T) {
	var (
		db = tests.OpenTestDB(t, nil)
		m  = tests.NewModels(nil)
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Model(m.User).LeftJoin(relations.Type(m.Message)).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
