package classifier

import (
	"errors"
	"testing"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, engine dbcapabilities.Engine, sql string) Class {
	t.Helper()
	class, err := Classify(engine, sql)
	require.NoError(t, err, sql)
	return class
}

func TestClassifyReads(t *testing.T) {
	for _, sql := range []string{
		"SELECT 1",
		"select * from users",
		"  SELECT id FROM orders;  ",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
		"BEGIN",
		"COMMIT",
		"ROLLBACK",
		"SAVEPOINT sp1",
		"RELEASE SAVEPOINT sp1",
		"START TRANSACTION",
	} {
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, sql), sql)
	}
}

func TestClassifyWritesAndDDL(t *testing.T) {
	writes := []string{
		"INSERT INTO users VALUES (1)",
		"UPDATE users SET name = 'x'",
		"DELETE FROM users",
		"CALL refresh_stats()",
	}
	for _, sql := range writes {
		assert.Equal(t, Write, classify(t, dbcapabilities.PostgreSQL, sql), sql)
	}

	ddl := []string{
		"CREATE TABLE t (id int)",
		"DROP TABLE users",
		"ALTER TABLE users ADD COLUMN x int",
		"TRUNCATE users",
		"RENAME TABLE a TO b",
	}
	for _, sql := range ddl {
		assert.Equal(t, DDL, classify(t, dbcapabilities.PostgreSQL, sql), sql)
	}
}

func TestClassifyEngineSpecificKeywords(t *testing.T) {
	t.Run("mysql extras", func(t *testing.T) {
		assert.Equal(t, Read, classify(t, dbcapabilities.MySQL, "SHOW TABLES"))
		assert.Equal(t, Read, classify(t, dbcapabilities.MySQL, "DESCRIBE users"))
		assert.Equal(t, Read, classify(t, dbcapabilities.MySQL, "DESC users"))
		assert.Equal(t, Write, classify(t, dbcapabilities.MySQL, "REPLACE INTO users VALUES (1)"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.MySQL, "LOCK TABLES users WRITE"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.MySQL, "UNLOCK TABLES"))
	})

	t.Run("sqlite extras", func(t *testing.T) {
		assert.Equal(t, Read, classify(t, dbcapabilities.SQLite, "PRAGMA table_info(users)"))
		assert.Equal(t, Write, classify(t, dbcapabilities.SQLite, "REPLACE INTO users VALUES (1)"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "VACUUM"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "REINDEX"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "ATTACH DATABASE 'other.db' AS other"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "DETACH DATABASE other"))
	})

	t.Run("keywords do not leak across engines", func(t *testing.T) {
		// SHOW is a MySQL construct; elsewhere the unknown keyword fails closed
		assert.Equal(t, DDL, classify(t, dbcapabilities.PostgreSQL, "SHOW TABLES"))
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "SHOW TABLES"))
		// PRAGMA is SQLite-only
		assert.Equal(t, DDL, classify(t, dbcapabilities.PostgreSQL, "PRAGMA table_info(users)"))
		// sqlite has no START TRANSACTION
		assert.Equal(t, DDL, classify(t, dbcapabilities.SQLite, "START TRANSACTION"))
	})
}

func TestClassifyWriteCTE(t *testing.T) {
	assert.Equal(t, Write, classify(t, dbcapabilities.PostgreSQL,
		"WITH moved AS (DELETE FROM queue RETURNING *) SELECT * FROM moved"))
	assert.Equal(t, Write, classify(t, dbcapabilities.PostgreSQL,
		"WITH up AS ( UPDATE users SET seen = true RETURNING id) SELECT count(*) FROM up"))
	assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL,
		"WITH recent AS (SELECT * FROM orders WHERE created > now() - interval '1 day') SELECT * FROM recent"))
}

func TestClassifyExplainUnwrap(t *testing.T) {
	assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, "EXPLAIN SELECT * FROM users"))
	assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, "EXPLAIN ANALYZE SELECT * FROM users"))
	// the inner statement decides; EXPLAIN does not launder writes
	assert.Equal(t, Write, classify(t, dbcapabilities.PostgreSQL, "EXPLAIN ANALYZE DELETE FROM users"))
	assert.Equal(t, DDL, classify(t, dbcapabilities.PostgreSQL, "EXPLAIN DROP TABLE users"))
}

func TestClassifyComments(t *testing.T) {
	assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL,
		"-- leading comment\nSELECT 1"))
	assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL,
		"/* block */ SELECT 1"))
	assert.Equal(t, Write, classify(t, dbcapabilities.PostgreSQL,
		"/* harmless */ DELETE FROM users"))

	t.Run("comment markers inside strings are data", func(t *testing.T) {
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL,
			"SELECT '--not a comment' FROM t"))
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL,
			"SELECT '/* still data */' FROM t"))
	})

	t.Run("comment-only input is invalid", func(t *testing.T) {
		_, err := Classify(dbcapabilities.PostgreSQL, "-- nothing here")
		require.Error(t, err)
		assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))

		_, err = Classify(dbcapabilities.PostgreSQL, "/* nothing */")
		require.Error(t, err)
		assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))
	})
}

func TestClassifyMultiStatement(t *testing.T) {
	t.Run("interior semicolon rejected", func(t *testing.T) {
		for _, sql := range []string{
			"SELECT 1; SELECT 2",
			"SELECT 1; DROP TABLE users",
			"SELECT 1;DELETE FROM users;",
		} {
			_, err := Classify(dbcapabilities.PostgreSQL, sql)
			require.Error(t, err, sql)
			assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err), sql)
		}
	})

	t.Run("trailing semicolon tolerated", func(t *testing.T) {
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, "SELECT 1;"))
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, "SELECT 1 ;  \n"))
	})

	t.Run("semicolon inside string literal is data", func(t *testing.T) {
		assert.Equal(t, Read, classify(t, dbcapabilities.PostgreSQL, "SELECT 'a;b' FROM t"))
	})
}

func TestClassifyEmptyInput(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n\t", ";"} {
		_, err := Classify(dbcapabilities.PostgreSQL, sql)
		require.Error(t, err, "%q", sql)
		assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))
	}
}

func TestClassifyUnknownKeywordFailsClosed(t *testing.T) {
	for _, sql := range []string{
		"GRANT ALL ON users TO public",
		"COPY users FROM '/tmp/users.csv'",
		"MERGE INTO t USING s ON t.id = s.id",
		"FROB THE DATABASE",
	} {
		assert.Equal(t, DDL, classify(t, dbcapabilities.PostgreSQL, sql), sql)
	}
}

func TestEnsureReadOnly(t *testing.T) {
	t.Run("reads pass", func(t *testing.T) {
		assert.NoError(t, EnsureReadOnly(dbcapabilities.PostgreSQL, "SELECT * FROM users"))
		assert.NoError(t, EnsureReadOnly(dbcapabilities.SQLite, "PRAGMA table_info(users)"))
	})

	t.Run("rejection echoes the original statement", func(t *testing.T) {
		original := "DELETE FROM users WHERE id = 42"
		err := EnsureReadOnly(dbcapabilities.PostgreSQL, original)
		require.Error(t, err)
		assert.True(t, errors.Is(err, adapter.ErrCapabilityViolation))
		assert.Equal(t, adapter.CodeCapabilityViolation, adapter.CodeOf(err))
		assert.Contains(t, err.Error(), original)
		assert.Contains(t, err.Error(), "dbplane is read-only")
		assert.Contains(t, err.Error(), "run this query manually")
	})

	t.Run("ddl rejected with its own label", func(t *testing.T) {
		err := EnsureReadOnly(dbcapabilities.MySQL, "DROP TABLE users")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DDL operations")
		assert.Contains(t, err.Error(), "DROP TABLE users")
	})
}
