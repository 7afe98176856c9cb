// Package dbutil adapts gendry-built SQL to postgres: `?` placeholders
// become $n and mysql-style `LIMIT offset,count` becomes LIMIT/OFFSET.
package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+\?\s*,\s*\?`)

func Finalize(query string, args []interface{}) (string, []interface{}) {
	if loc := limitClause.FindStringIndex(query); loc != nil {
		// gendry's limit args arrive offset-first; postgres wants the
		// count before the offset.
		n := strings.Count(query[:loc[0]], "?")
		if n+1 < len(args) {
			args[n], args[n+1] = args[n+1], args[n]
			query = query[:loc[0]] + "LIMIT ? OFFSET ?" + query[loc[1]:]
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports whether err is a postgres unique-violation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
