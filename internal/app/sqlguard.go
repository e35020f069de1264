package app

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbiddenTable reports a generated statement referencing a relation
// other than the table the exchange is scoped to.
var ErrForbiddenTable = errors.New("statement references a forbidden table")

// guardQuery enforces the single-table restriction mechanically: every
// relation the statement references must be the target table. The check runs
// before execution on both the agent-loop and fallback paths. A statement
// that mentions a relation keyword but yields no parseable relation is
// rejected rather than waved through.
func guardQuery(query, table string) error {
	want := normalizeRelation(table)
	relations := referencedRelations(query)
	if len(relations) == 0 && mentionsRelationKeyword(query) {
		return fmt.Errorf("%w: could not resolve referenced relations", ErrForbiddenTable)
	}
	for _, rel := range relations {
		if normalizeRelation(rel) != want {
			return fmt.Errorf("%w: %q", ErrForbiddenTable, rel)
		}
	}
	return nil
}

// referencedRelations extracts the relation names a SQL statement mentions.
// It is a token scan, not a full parser: identifiers following FROM, JOIN,
// INTO, UPDATE and TABLE are collected, including comma-separated lists
// after FROM. Subqueries are covered because the scan is linear and their
// inner FROM clauses are visited too.
func referencedRelations(query string) []string {
	tokens := strings.Fields(normalizeStatement(query))
	var relations []string
	for i := 0; i < len(tokens); i++ {
		keyword := strings.ToUpper(strings.TrimSuffix(tokens[i], ","))
		switch keyword {
		case "FROM", "JOIN", "INTO", "UPDATE", "TABLE":
			for j := i + 1; j < len(tokens); j++ {
				token := tokens[j]
				if token == "(" {
					// Derived table; its own FROM is scanned later.
					break
				}
				name := strings.TrimRight(token, ",;)")
				if name != "" {
					relations = append(relations, name)
				}
				if !strings.HasSuffix(token, ",") {
					// A comma continues a FROM list; anything else ends it.
					if j+1 >= len(tokens) || tokens[j+1] != "," {
						i = j
						break
					}
					j++ // skip the standalone comma
				}
			}
		}
	}
	return relations
}

// normalizeStatement rewrites a statement so strings.Fields yields clean
// tokens: comments become whitespace, string literals are blanked, and
// quoted identifiers and parentheses are split off from whatever abuts
// them. Without this a comment or quote glued to a keyword would hide the
// FROM token from the scan.
func normalizeStatement(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			// Line comment runs to end of line.
			if nl := strings.IndexByte(query[i:], '\n'); nl >= 0 {
				i += nl + 1
			} else {
				i = len(query)
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			if end := strings.Index(query[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(query)
			}
			b.WriteByte(' ')
		case c == '\'':
			// Literal contents must not be tokenized as SQL.
			if end := strings.IndexByte(query[i+1:], '\''); end >= 0 {
				i += end + 2
			} else {
				i = len(query)
			}
			b.WriteString(" '?' ")
		case c == '"' || c == '`':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				b.WriteByte(' ')
				b.WriteString(query[i:])
				i = len(query)
				break
			}
			// Keep a quoted identifier as one token, but detach it from an
			// adjacent keyword. A dot on either side is a schema qualifier
			// and stays attached.
			if i > 0 && query[i-1] != '.' {
				b.WriteByte(' ')
			}
			b.WriteString(query[i : i+end+2])
			i += end + 2
			if i < len(query) && query[i] != '.' {
				b.WriteByte(' ')
			}
		case c == '(' || c == ')':
			b.WriteByte(' ')
			b.WriteByte(c)
			b.WriteByte(' ')
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func mentionsRelationKeyword(query string) bool {
	upper := strings.ToUpper(query)
	for _, kw := range []string{"FROM", "JOIN", "INTO", "UPDATE", "TABLE"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func normalizeRelation(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\"`")
	// Drop an explicit schema qualifier.
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(strings.Trim(name, "\"`"))
}
