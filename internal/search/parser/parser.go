// Package parser turns free-text query strings into a want/unwant term
// algebra consumed by the query planner.
package parser

import "regexp"

// termPattern matches one query term anywhere in the input. The scan is not
// whitespace-delimited: any non-overlapping run matching [+-]?field:value is
// extracted, and text that matches nothing is ignored rather than rejected.
var termPattern = regexp.MustCompile(`[+-]?(\w+):(\S+)`)

// Term is one (field, value) pair extracted from a query string.
type Term struct {
	Field string
	Value string
}

// Query holds the parsed term algebra. Want terms must all match; Unwant
// terms must not. Duplicate terms collapse under set semantics.
type Query struct {
	Want   map[Term]struct{}
	Unwant map[Term]struct{}
}

// Parse scans the query string for terms. A leading '-' marks a term as
// unwanted; no sign or a leading '+' marks it wanted. A string with zero
// recognizable terms yields an empty (and unevaluable) Query, not an error.
func Parse(query string) Query {
	q := Query{
		Want:   make(map[Term]struct{}),
		Unwant: make(map[Term]struct{}),
	}
	for _, m := range termPattern.FindAllStringSubmatch(query, -1) {
		term := Term{Field: m[1], Value: m[2]}
		if len(m[0]) > 1 && m[0][0] == '-' {
			q.Unwant[term] = struct{}{}
		} else {
			q.Want[term] = struct{}{}
		}
	}
	return q
}

// Empty reports whether the query has no want terms. Such a query matches
// nothing and must not reach the store.
func (q Query) Empty() bool {
	return len(q.Want) == 0
}
