package engine

import (
	"context"
	"strings"
	"time"

	"github.com/pooi/redsearch/internal/search/keys"
	"github.com/pooi/redsearch/internal/search/parser"
)

// Query parses the query string and evaluates it against the index,
// returning the key of an ephemeral set holding the matching document ids.
// An empty string means the query matches nothing; no store operation is
// performed in that case. The returned key expires after the configured TTL.
//
// Evaluation order: comma-valued terms on sortable fields expand into a
// union; remaining want terms intersect (sortable fields as whole-value
// tokens, others decomposed by the tokenizer, one key per unit); unwant
// terms are subtracted from the intersection.
func (e *Engine) Query(ctx context.Context, index, query string) (string, error) {
	start := time.Now()
	defer e.observeStage("query", start)

	q := parser.Parse(query)
	if q.Empty() {
		if e.metrics != nil {
			e.metrics.QueriesTotal.WithLabelValues("empty_query").Inc()
		}
		return "", nil
	}

	meta, err := e.readFieldMeta(ctx, index)
	if err != nil {
		return "", err
	}

	// Comma-separated values on sortable fields become an OR-group: one
	// token key per listed value, merged by union. Empty values from
	// stray commas ("30,40,") produce no key; a term whose values are all
	// empty stays in the AND-group.
	var unionKeys []string
	inUnion := make(map[parser.Term]struct{})
	for term := range q.Want {
		if !strings.Contains(term.Value, ",") || !meta[term.Field].Sortable {
			continue
		}
		var termKeys []string
		for _, value := range strings.Split(term.Value, ",") {
			if value == "" {
				continue
			}
			termKeys = append(termKeys, keys.Token(e.prefix, index, term.Field, value))
		}
		if len(termKeys) == 0 {
			continue
		}
		inUnion[term] = struct{}{}
		unionKeys = append(unionKeys, termKeys...)
	}

	unionResult := ""
	if len(unionKeys) > 0 {
		unionResult, err = e.Union(ctx, index, unionKeys)
		if err != nil {
			return "", err
		}
	}

	// Every remaining want term contributes to the AND-group. Sortable
	// fields match their whole value; other fields decompose into tokenizer
	// units, all of which must be present. An unknown field has zero-value
	// meta and therefore takes the decomposed path.
	var intersectKeys []string
	for term := range q.Want {
		if _, ok := inUnion[term]; ok {
			continue
		}
		if meta[term.Field].Sortable {
			intersectKeys = append(intersectKeys, keys.Token(e.prefix, index, term.Field, term.Value))
			continue
		}
		for _, unit := range e.tokenize(term.Value) {
			intersectKeys = append(intersectKeys, keys.Token(e.prefix, index, term.Field, unit))
		}
	}
	if unionResult != "" {
		intersectKeys = append(intersectKeys, unionResult)
	}

	intersectResult, err := e.Intersect(ctx, index, intersectKeys)
	if err != nil {
		return "", err
	}

	if len(q.Unwant) == 0 {
		return intersectResult, nil
	}

	diffKeys := make([]string, 0, len(q.Unwant)+1)
	diffKeys = append(diffKeys, intersectResult)
	for term := range q.Unwant {
		diffKeys = append(diffKeys, keys.Token(e.prefix, index, term.Field, term.Value))
	}
	return e.Diff(ctx, index, diffKeys)
}
