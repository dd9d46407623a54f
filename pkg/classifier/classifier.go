// Package classifier performs lexical read-only classification of SQL
// statements. Classification happens before any connection is made and
// decides purely from the statement text which category it falls into.
// The allow-lists are plain data so the policy for each engine can be read
// at a glance.
package classifier

import (
	"fmt"
	"strings"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Class is the category a statement falls into.
type Class int

const (
	Read Class = iota
	Write
	DDL
)

// String returns the category name.
func (c Class) String() string {
	switch c {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "ddl"
	}
}

// ruleSet holds the leading keywords for one engine. Matching is by leading
// keyword with a word boundary; multi-word keywords are listed longest first.
type ruleSet struct {
	read  []string
	write []string
	ddl   []string
}

var rules = map[dbcapabilities.Engine]ruleSet{
	dbcapabilities.PostgreSQL: {
		read:  []string{"SELECT", "WITH", "START TRANSACTION", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE"},
		write: []string{"INSERT", "UPDATE", "DELETE", "CALL"},
		ddl:   []string{"CREATE", "DROP", "ALTER", "TRUNCATE", "RENAME"},
	},
	dbcapabilities.MySQL: {
		read:  []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "START TRANSACTION", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE"},
		write: []string{"INSERT", "UPDATE", "DELETE", "REPLACE", "CALL", "EXEC"},
		ddl:   []string{"LOCK TABLES", "UNLOCK TABLES", "CREATE", "DROP", "ALTER", "TRUNCATE", "RENAME"},
	},
	dbcapabilities.SQLite: {
		read:  []string{"SELECT", "WITH", "PRAGMA", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE"},
		write: []string{"INSERT", "UPDATE", "DELETE", "REPLACE"},
		ddl:   []string{"CREATE", "DROP", "ALTER", "VACUUM", "REINDEX", "ATTACH", "DETACH"},
	},
}

// Classify categorizes a single SQL statement for the given engine.
// Empty statements and multi-statement input are rejected with INVALID_INPUT.
// Unknown leading keywords classify as DDL so they can never pass the
// read-only gate.
func Classify(engine dbcapabilities.Engine, sql string) (Class, error) {
	normalized, err := preprocess(engine, sql)
	if err != nil {
		return DDL, err
	}

	stmt := stripExplain(normalized)

	set, ok := rules[engine]
	if !ok {
		return DDL, adapter.NewInvalidInput(engine, "classify", fmt.Sprintf("unknown engine '%s'", engine))
	}

	// WITH is read-only only when no data-modifying CTE hides inside
	if hasKeyword(stmt, "WITH") {
		if containsWriteCTE(stmt) {
			return Write, nil
		}
		return Read, nil
	}

	for _, kw := range set.read {
		if hasKeyword(stmt, kw) {
			return Read, nil
		}
	}
	for _, kw := range set.write {
		if hasKeyword(stmt, kw) {
			return Write, nil
		}
	}
	for _, kw := range set.ddl {
		if hasKeyword(stmt, kw) {
			return DDL, nil
		}
	}

	// Fail closed
	return DDL, nil
}

// EnsureReadOnly classifies the statement and rejects anything that is not a
// read. The rejection message echoes the caller's original statement so it
// can be run manually outside dbplane.
func EnsureReadOnly(engine dbcapabilities.Engine, sql string) error {
	class, err := Classify(engine, sql)
	if err != nil {
		return err
	}
	if class == Read {
		return nil
	}

	var label string
	switch class {
	case Write:
		label = "Write operations"
	default:
		label = "DDL operations"
	}
	msg := fmt.Sprintf("%s are not permitted. dbplane is read-only.\n\nQuery:\n%s\n\nPlease run this query manually.", label, strings.TrimSpace(sql))
	return adapter.NewCapabilityViolation(engine, msg)
}

// preprocess trims, strips comments, rejects empty and multi-statement
// input, and uppercases for keyword matching.
func preprocess(engine dbcapabilities.Engine, sql string) (string, error) {
	stripped := stripComments(sql)
	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return "", adapter.NewInvalidInput(engine, "classify", "SQL statement is empty")
	}

	// One trailing semicolon is tolerated; any other semicolon outside
	// quotes means multiple statements.
	body := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if containsUnquotedSemicolon(body) {
		return "", adapter.NewInvalidInput(engine, "classify", "multiple SQL statements are not allowed")
	}
	if strings.TrimSpace(body) == "" {
		return "", adapter.NewInvalidInput(engine, "classify", "SQL statement is empty")
	}

	return strings.ToUpper(strings.TrimSpace(body)), nil
}

// stripComments removes -- line comments and /* */ block comments in a
// single quote-aware pass. Line comments keep their terminating newline;
// block comments collapse to one space so token boundaries survive.
func stripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)
	state := stateNormal

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			case ch == '\'':
				state = stateSingleQuote
				b.WriteRune(ch)
			case ch == '"':
				state = stateDoubleQuote
				b.WriteRune(ch)
			default:
				b.WriteRune(ch)
			}
		case stateSingleQuote:
			b.WriteRune(ch)
			if ch == '\'' {
				if next == '\'' {
					b.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}
		case stateDoubleQuote:
			b.WriteRune(ch)
			if ch == '"' {
				if next == '"' {
					b.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}
		case stateLineComment:
			if ch == '\n' {
				b.WriteRune(ch)
				state = stateNormal
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				b.WriteRune(' ')
				i++
				state = stateNormal
			}
		}
	}

	return b.String()
}

// containsUnquotedSemicolon scans comment-stripped text for a semicolon
// outside string literals and quoted identifiers.
func containsUnquotedSemicolon(sql string) bool {
	inSingle, inDouble := false, false
	for _, ch := range sql {
		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == ';' && !inSingle && !inDouble:
			return true
		}
	}
	return false
}

// stripExplain unwraps EXPLAIN and EXPLAIN ANALYZE prefixes so the inner
// statement decides the category.
func stripExplain(stmt string) string {
	for {
		switch {
		case strings.HasPrefix(stmt, "EXPLAIN ANALYZE "):
			stmt = strings.TrimSpace(stmt[len("EXPLAIN ANALYZE "):])
		case strings.HasPrefix(stmt, "EXPLAIN "):
			stmt = strings.TrimSpace(stmt[len("EXPLAIN "):])
		default:
			return stmt
		}
	}
}

// hasKeyword reports whether stmt starts with the keyword followed by a word
// boundary. Multi-word keywords match their interior spaces literally.
func hasKeyword(stmt, kw string) bool {
	if !strings.HasPrefix(stmt, kw) {
		return false
	}
	if len(stmt) == len(kw) {
		return true
	}
	ch := stmt[len(kw)]
	return !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') && ch != '_'
}

// containsWriteCTE detects data-modifying statements hidden inside a WITH.
// The keywords are matched as whole words anywhere past the leading WITH so
// that forms like "AS (DELETE ..." are caught.
func containsWriteCTE(stmt string) bool {
	for _, kw := range []string{"INSERT", "UPDATE", "DELETE"} {
		if containsWord(stmt[len("WITH"):], kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether s contains kw bounded by non-identifier
// characters on both sides.
func containsWord(s, kw string) bool {
	for idx := strings.Index(s, kw); idx >= 0; {
		before := idx == 0 || !isIdentChar(s[idx-1])
		afterPos := idx + len(kw)
		after := afterPos >= len(s) || !isIdentChar(s[afterPos])
		if before && after {
			return true
		}
		rest := strings.Index(s[idx+1:], kw)
		if rest < 0 {
			return false
		}
		idx = idx + 1 + rest
	}
	return false
}

func isIdentChar(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
