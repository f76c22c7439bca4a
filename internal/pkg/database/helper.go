package database

import (
	"strings"

	"gorm.io/gorm"
)

// Scope is a reusable query modifier for gorm's Scopes
type Scope = func(db *gorm.DB) *gorm.DB

// WhereIf adds a where clause only when condition holds
func WhereIf(condition bool, query interface{}, args ...interface{}) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if condition {
			return db.Where(query, args...)
		}
		return db
	}
}

// OrderBy adds ordering on one or more columns sharing a direction
func OrderBy(desc bool, columns ...string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		for _, col := range columns {
			if desc {
				col += " DESC"
			}
			db = db.Order(col)
		}
		return db
	}
}

// ContainsFold matches rows where any of columns contains term, ignoring
// case. LIKE wildcards in term are escaped.
func ContainsFold(term string, columns ...string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + EscapeLike(strings.ToLower(term)) + "%"

		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			clauses[i] = "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters with a backslash
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
