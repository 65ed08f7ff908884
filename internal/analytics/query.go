package analytics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aman-zulfiqar/solana-amm/internal/events"
)

// ErrRejectedQuery marks generated SQL that the agent refuses to run.
var ErrRejectedQuery = errors.New("generated query rejected")

var (
	fenced       = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*(?:```|\\z)")
	writeWords   = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|RENAME|ATTACH|DETACH|OPTIMIZE|GRANT|REVOKE|KILL|SYSTEM)\b`)
	sources      = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([\w.]+)`)
	kindCompare  = regexp.MustCompile(`(?i)\bkind\s*(?:=|!=|<>)\s*'([^']*)'`)
	kindIn       = regexp.MustCompile(`(?i)\bkind\s+(?:NOT\s+)?IN\s*\(([^)]*)\)`)
	quoted       = regexp.MustCompile(`'([^']*)'`)
	qualifiedCol = regexp.MustCompile(`(?i)\b` + events.Table + `\.(\w+)`)
	limitClause  = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

// cleanReply pulls the SQL out of a model reply: code fences, a leading
// "sql" tag and a trailing semicolon are dropped.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if m := fenced.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	if len(s) > 3 && strings.EqualFold(s[:3], "sql") && (s[3] == ' ' || s[3] == '\n') {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

// checkQuery accepts a single read-only SELECT over the liquidity table and
// returns it with a row cap appended when the query has no LIMIT.
func checkQuery(q, database string, rowLimit int) (string, error) {
	if q == "" {
		return "", fmt.Errorf("%w: empty SQL", ErrRejectedQuery)
	}
	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") {
		return "", fmt.Errorf("%w: only SELECT queries are allowed, got %q", ErrRejectedQuery, q[:min(20, len(q))])
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("%w: semicolons are not allowed", ErrRejectedQuery)
	}
	if m := writeWords.FindString(q); m != "" {
		return "", fmt.Errorf("%w: disallowed keyword %s", ErrRejectedQuery, strings.ToUpper(m))
	}

	table := strings.ToLower(events.Table)
	full := strings.ToLower(database) + "." + table
	read := false
	for _, m := range sources.FindAllStringSubmatch(q, -1) {
		name := strings.ToLower(m[1])
		switch {
		case name == table || name == full:
			read = true
		case isColumn(name):
			// EXTRACT(hour FROM timestamp) and friends
		default:
			return "", fmt.Errorf("%w: reads %s, only %s is allowed", ErrRejectedQuery, m[1], full)
		}
	}
	if !read {
		return "", fmt.Errorf("%w: query must read %s", ErrRejectedQuery, full)
	}

	for _, m := range qualifiedCol.FindAllStringSubmatch(q, -1) {
		if !isColumn(m[1]) {
			return "", fmt.Errorf("%w: unknown column %s", ErrRejectedQuery, m[1])
		}
	}

	var kinds []string
	for _, m := range kindCompare.FindAllStringSubmatch(q, -1) {
		kinds = append(kinds, m[1])
	}
	for _, m := range kindIn.FindAllStringSubmatch(q, -1) {
		for _, lit := range quoted.FindAllStringSubmatch(m[1], -1) {
			kinds = append(kinds, lit[1])
		}
	}
	for _, k := range kinds {
		if !isEventKind(k) {
			return "", fmt.Errorf("%w: unknown event kind %q", ErrRejectedQuery, k)
		}
	}

	if rowLimit > 0 && !limitClause.MatchString(q) {
		q = fmt.Sprintf("%s\nLIMIT %d", q, rowLimit)
	}
	return q, nil
}
