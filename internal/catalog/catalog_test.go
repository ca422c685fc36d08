package catalog_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/relations"
	"gorm.io/relations/internal/catalog"
	"gorm.io/relations/logger"
	"gorm.io/relations/schema"
	"gorm.io/relations/utils/tests"
)

type records = []relations.Record

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c, err := catalog.Load("testdata/catalog.yaml", nil)
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := loadCatalog(t)

	user, ok := c.Schema("User")
	require.True(t, ok)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, user.FieldsByName["ID"], user.PrimaryField)
	assert.Equal(t, []*schema.Field{user.FieldsByName["Email"]}, user.UniqueFields)
	assert.Equal(t, schema.Time, user.FieldsByName["CreatedAt"].DataType)

	image, ok := c.Schema("Image")
	require.True(t, ok)
	assert.Equal(t, "url", image.FieldsByName["URL"].DBName)

	category, _ := c.Schema("ImageCategory")
	assert.Equal(t, []*schema.Field{category.FieldsByName["ID"]}, image.FieldsByName["CategoryID"].Targets(), "references declared before their target resolve")

	assert.Contains(t, image.Registry.Resolve(), "ImageCategory")

	_, ok = c.Schema("Tag")
	assert.False(t, ok)

	_, err := catalog.Load("testdata/missing.yaml", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseErrors(t *testing.T) {
	results := []struct {
		name string
		yaml string
		err  error
		msg  string
	}{
		{
			name: "unknown entity type",
			yaml: "entities:\n  - {name: Post, fields: [{name: ID, type: int}, {name: UserID, type: int, references: [User.ID]}]}\n",
			err:  catalog.ErrUnknownEntity,
			msg:  "Post.UserID: unknown entity type: User",
		},
		{
			name: "unknown field",
			yaml: "entities:\n  - {name: Post, fields: [{name: ID, type: int}, {name: ParentID, type: int, references: [Post.UUID]}]}\n",
			err:  catalog.ErrInvalidDefinition,
			msg:  `Post.ParentID: invalid definition: reference "Post.UUID" matches no field`,
		},
		{
			name: "malformed reference",
			yaml: "entities:\n  - {name: Post, fields: [{name: ParentID, type: int, references: [Post]}]}\n",
			err:  catalog.ErrInvalidDefinition,
			msg:  `Post.ParentID: invalid definition: reference "Post" is not Type.Field`,
		},
		{
			name: "data type",
			yaml: "entities:\n  - {name: Post, fields: [{name: ID, type: uuid}]}\n",
			err:  catalog.ErrInvalidDefinition,
			msg:  `Post.ID: invalid definition: data type "uuid"`,
		},
		{
			name: "declared twice",
			yaml: "entities:\n  - {name: Post}\n  - {name: Post}\n",
			err:  catalog.ErrInvalidDefinition,
			msg:  "invalid definition: entity type Post declared twice",
		},
		{
			name: "duplicate field",
			yaml: "entities:\n  - {name: Post, fields: [{name: ID}, {name: ID}]}\n",
			err:  catalog.ErrInvalidDefinition,
		},
	}

	for _, result := range results {
		t.Run(result.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(result.yaml), nil)
			assert.ErrorIs(t, err, result.err)
			if result.msg != "" {
				assert.EqualError(t, err, result.msg)
			}
		})
	}

	_, err := catalog.Parse([]byte("entities: {"), nil)
	assert.Error(t, err)
}

func TestQueryErrors(t *testing.T) {
	c, err := catalog.Parse([]byte(`
entities:
  - {name: User, fields: [{name: ID, type: int, primary: true}]}
queries:
  unknown_model: {model: Post}
  unknown_join: {model: User, joins: [{model: Post}]}
  join_type: {model: User, joins: [{model: User, type: outer}]}
  via_join_type: {model: User, joins: [{model: User, via: {model: User, types: {User: cross}}}]}
`), nil)
	require.NoError(t, err)

	db, err := relations.Open(tests.DummyDialector{}, &relations.Config{Logger: logger.Discard})
	require.NoError(t, err)

	_, err = c.Query(db, "missing")
	assert.ErrorIs(t, err, catalog.ErrUnknownQuery)

	_, err = c.Query(db, "unknown_model")
	assert.ErrorIs(t, err, catalog.ErrUnknownEntity)
	assert.EqualError(t, err, `query unknown_model: unknown entity type: "Post"`)

	_, err = c.Query(db, "unknown_join")
	assert.ErrorIs(t, err, catalog.ErrUnknownEntity)

	_, err = c.Query(db, "join_type")
	assert.ErrorIs(t, err, catalog.ErrInvalidDefinition)

	_, err = c.Query(db, "via_join_type")
	assert.ErrorIs(t, err, catalog.ErrInvalidDefinition)
}

func TestQueryToSQL(t *testing.T) {
	c := loadCatalog(t)

	db, err := relations.Open(tests.DummyDialector{}, &relations.Config{Logger: logger.Discard})
	require.NoError(t, err)

	results := []struct {
		query string
		sql   string
	}{
		{
			query: "users_with_groups",
			sql:   "SELECT `users`.`id` AS `users.ID`,`users`.`name` AS `users.Name`,`groups_1`.`id` AS `groups_1.ID`,`groups_1`.`name` AS `groups_1.Name` FROM `users` LEFT JOIN `group_memberships` `group_memberships_2` ON `group_memberships_2`.`user_id` = `users`.`id` LEFT JOIN `groups` `groups_1` ON `groups_1`.`id` = `group_memberships_2`.`group_id` ORDER BY `users`.`id`,`groups_1`.`id`",
		},
		{
			query: "friend_of",
			sql:   "SELECT `users`.`id` AS `users.ID`,`users_1`.`id` AS `users_1.ID` FROM `users` LEFT JOIN `friendships` `friendships_2` ON `friendships_2`.`friend_id` = `users`.`id` LEFT JOIN `users` `users_1` ON `users_1`.`id` = `friendships_2`.`user_id`",
		},
	}

	for _, result := range results {
		t.Run(result.query, func(t *testing.T) {
			q, err := c.Query(db, result.query)
			require.NoError(t, err)

			sql, _, err := q.ToSQL(context.Background())
			require.NoError(t, err)
			assert.Equal(t, result.sql, sql)
		})
	}

	t.Run("every call builds a fresh query", func(t *testing.T) {
		first, err := c.Query(db, "friend_of")
		require.NoError(t, err)
		second, err := c.Query(db, "friend_of")
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		_, _, err = first.ToSQL(context.Background())
		require.NoError(t, err)
		_, _, err = second.ToSQL(context.Background())
		assert.NoError(t, err)
	})
}

func TestQueryFetch(t *testing.T) {
	var (
		ctx = context.Background()
		db  = tests.OpenTestDB(t, nil)
		c   = loadCatalog(t)
	)

	fetch := func(t *testing.T, name string) records {
		t.Helper()

		q, err := c.Query(db, name)
		require.NoError(t, err)

		results, err := q.Fetch(ctx)
		require.NoError(t, err)
		return results
	}

	t.Run("via", func(t *testing.T) {
		assert.Equal(t, records{
			{"ID": int64(1), "Name": "Alice", "Group": records{{"ID": int64(1), "Name": "Admins"}, {"ID": int64(2), "Name": "Staff"}}},
			{"ID": int64(2), "Name": "Bob", "Group": records{{"ID": int64(2), "Name": "Staff"}}},
			{"ID": int64(3), "Name": "Carol", "Group": records{{"ID": int64(1), "Name": "Admins"}}},
			{"ID": int64(4), "Name": "Dave", "Group": nil},
		}, fetch(t, "users_with_groups"))
	})

	t.Run("inner via with conditions", func(t *testing.T) {
		assert.Equal(t, records{
			{"ID": int64(1), "Name": "Alice", "Group": records{{"ID": int64(1)}}},
			{"ID": int64(3), "Name": "Carol", "Group": records{{"ID": int64(1)}}},
		}, fetch(t, "admins"))
	})

	t.Run("self reference", func(t *testing.T) {
		assert.Equal(t, records{
			{"ID": int64(3), "Name": "Carol", "Creator": relations.Record{"ID": int64(1), "Name": "Alice"}},
			{"ID": int64(2), "Name": "Bob", "Creator": relations.Record{"ID": int64(1), "Name": "Alice"}},
		}, fetch(t, "creators"))
	})

	t.Run("narrowed", func(t *testing.T) {
		assert.Equal(t, records{
			{"ID": int64(3), "Sent": records{{"ID": int64(4), "Text": "note to self"}}},
		}, fetch(t, "sent_messages"))
	})

	t.Run("deferred references", func(t *testing.T) {
		cats := relations.Record{"ID": int64(1), "Name": "Cats", "Cover": relations.Record{"ID": int64(2)}}

		assert.Equal(t, records{
			{"ID": int64(1), "URL": "a.png", "ImageCategory": cats},
			{"ID": int64(2), "URL": "b.png", "ImageCategory": cats},
			{"ID": int64(3), "URL": "c.png", "ImageCategory": nil},
		}, fetch(t, "categories"))
	})
}
