// Package keys builds every Redis key the search engine touches. All
// functions are pure string construction; Ephemeral additionally embeds a
// fresh random identifier so concurrent queries never share result keys.
package keys

import (
	"fmt"

	"github.com/google/uuid"
)

// Meta returns the hash key holding field metadata for an index.
func Meta(prefix, index string) string {
	return fmt.Sprintf("rs:%s:meta:idx:%s", prefix, index)
}

// Token returns the set key holding document ids that contain the given
// token in the given field.
func Token(prefix, index, field, value string) string {
	return fmt.Sprintf("rs:%s:idx:%s:%s:%s", prefix, index, field, value)
}

// Sort returns the sorted-set key holding per-document scores for a
// sortable field.
func Sort(prefix, index, field string) string {
	return fmt.Sprintf("rs:%s:idx:%s:%s", prefix, index, field)
}

// DocFootprint returns the set key listing every index key that references
// the given document. Deletion walks this set.
func DocFootprint(prefix, index, documentID string) string {
	return fmt.Sprintf("rs:%s:doc:%s:%s", prefix, index, documentID)
}

// Ephemeral returns a fresh, collision-free key for staging a query result.
// Each call yields a new key; callers give it a TTL in the same pipeline
// that populates it.
func Ephemeral(prefix, index string) string {
	return fmt.Sprintf("rs:%s:idx:%s:q:%s", prefix, index, uuid.NewString())
}

// IndexPatterns returns globs that together match every key belonging to an
// index: token/sort/result keys, document footprints, and the metadata hash.
func IndexPatterns(prefix, index string) []string {
	return []string{
		fmt.Sprintf("rs:%s:idx:%s:*", prefix, index),
		fmt.Sprintf("rs:%s:doc:%s:*", prefix, index),
		Meta(prefix, index),
	}
}
