package tests

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"gorm.io/relations"
	"gorm.io/relations/dialects/sqlite"
	"gorm.io/relations/logger"
)

// Fixtures tables and rows of the test entity types
//
//	users              1 Alice, 2 Bob and 3 Carol created by Alice, 4 Dave created by Bob
//	groups             1 Admins, 2 Staff, 3 Empty
//	group_memberships  Alice in Admins and Staff, Bob in Staff, Carol in Admins, Dave in none
//	messages           Alice<->Bob, Alice->Carol, Carol->Carol
//	friendships        Alice->Bob, Alice->Carol, Bob->Carol
//	images             a.png and b.png in Cats, c.png in none
//	image_categories   Cats with cover b.png, Dogs without cover
const Fixtures = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT UNIQUE, created_at TEXT, creator_id INTEGER);
CREATE TABLE "groups" (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE group_memberships (id INTEGER PRIMARY KEY, user_id INTEGER, group_id INTEGER);
CREATE TABLE messages (id INTEGER PRIMARY KEY, text TEXT, sender_id INTEGER, receiver_id INTEGER);
CREATE TABLE friendships (id INTEGER PRIMARY KEY, user_id INTEGER, friend_id INTEGER);
CREATE TABLE images (id INTEGER PRIMARY KEY, url TEXT, category_id INTEGER);
CREATE TABLE image_categories (id INTEGER PRIMARY KEY, name TEXT, cover_id INTEGER);
CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT);

INSERT INTO users VALUES
	(1, 'Alice', 'alice@example.com', '2020-02-23 11:10:10', NULL),
	(2, 'Bob', 'bob@example.com', '2020-02-24 11:10:10', 1),
	(3, 'Carol', 'carol@example.com', '2020-02-25 11:10:10', 1),
	(4, 'Dave', 'dave@example.com', '2020-02-26 11:10:10', 2);
INSERT INTO "groups" VALUES (1, 'Admins'), (2, 'Staff'), (3, 'Empty');
INSERT INTO group_memberships VALUES (1, 1, 1), (2, 1, 2), (3, 2, 2), (4, 3, 1);
INSERT INTO messages VALUES
	(1, 'hi bob', 1, 2),
	(2, 'hi alice', 2, 1),
	(3, 'hi carol', 1, 3),
	(4, 'note to self', 3, 3);
INSERT INTO friendships VALUES (1, 1, 2), (2, 1, 3), (3, 2, 3);
INSERT INTO images VALUES (1, 'a.png', 1), (2, 'b.png', 1), (3, 'c.png', NULL);
INSERT INTO image_categories VALUES (1, 'Cats', 2), (2, 'Dogs', NULL);
INSERT INTO tags VALUES (1, 'misc');
`

// OpenTestDB opens an in-memory sqlite database loaded with Fixtures
func OpenTestDB(t testing.TB, config *relations.Config) *relations.DB {
	t.Helper()

	if config == nil {
		config = &relations.Config{Logger: logger.Discard}
	}

	db, err := relations.Open(sqlite.Open(":memory:"), config)
	if err != nil {
		t.Fatalf("failed to open sqlite, got error %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB, got error %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := LoadFixtures(context.Background(), sqlDB); err != nil {
		t.Fatalf("failed to load fixtures, got error %v", err)
	}

	return db
}

// LoadFixtures creates and fills the test tables
func LoadFixtures(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Fixtures); err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	return nil
}
