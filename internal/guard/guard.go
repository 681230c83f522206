// Package guard implements the read-only statement gate applied to every
// raw SQL query before execution.
//
// The gate is a static keyword filter, not a parser: comments are stripped,
// the statement must open with a read keyword, and no mutation keyword may
// appear as a whole word anywhere in the remaining text. It is a best-effort
// guard against accidental misuse by a cooperative caller, NOT a security
// boundary against a malicious one (stored procedures, engine extensions,
// and dialect quirks can slip through). Keyword matching also overreaches
// into string literals; that is accepted rather than fixed, because callers
// depend on the gate's current permissiveness (for example EXPLAIN ANALYZE
// passes).
package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedOpeners are the statement prefixes accepted by the gate. The match
// is a plain prefix check on the cleaned, uppercased text.
var allowedOpeners = []string{
	"SELECT", "WITH", "EXPLAIN", "SHOW", "DESCRIBE", "VALUES",
}

var (
	lineCommentRE  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// Mutation keywords, matched as whole words over the entire cleaned
	// text rather than just the prefix, so a WITH query smuggling a DELETE
	// in a nested clause is still caught. Word-boundary matching keeps
	// identifiers like execute_date from triggering.
	deniedKeywordRE = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE)\b`)
)

// Strip removes line comments (-- to end of line) and block comments
// (/* ... */, spanning lines) from sql. Stripping happens before any
// keyword inspection so a comment can neither hide a mutation keyword
// nor fake an allowed opener.
func Strip(sql string) string {
	out := lineCommentRE.ReplaceAllString(sql, "")
	out = blockCommentRE.ReplaceAllString(out, "")
	return out
}

// Check returns nil if sql passes the read-only gate, or an error naming
// the rule that failed. The error text is for logs; callers surface a
// fixed rejection message to clients regardless of the reason.
func Check(sql string) error {
	clean := strings.ToUpper(strings.TrimSpace(Strip(sql)))

	opener := false
	for _, kw := range allowedOpeners {
		if strings.HasPrefix(clean, kw) {
			opener = true
			break
		}
	}
	if !opener {
		return fmt.Errorf("query does not start with an allowed keyword (%s)", strings.Join(allowedOpeners, ", "))
	}

	if m := deniedKeywordRE.FindString(clean); m != "" {
		return fmt.Errorf("query contains denied keyword %s", m)
	}
	return nil
}
