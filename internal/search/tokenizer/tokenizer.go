// Package tokenizer defines the pluggable tokenizer contract used by the
// index writer and the query planner.
//
// The default Chars tokenizer emits one token per rune. Indexing a value
// under its individual characters and intersecting them at query time gives
// cheap substring-style matching that also works for unsegmented scripts
// (CJK text has no word boundaries to split on). That behavior is
// load-bearing for existing index data; do not "fix" it.
package tokenizer

import "strings"

// Tokenizer splits a field value into index tokens.
type Tokenizer func(text string) []string

// Chars is the default tokenizer: one token per rune, duplicates removed.
func Chars(text string) []string {
	seen := make(map[string]struct{}, len(text))
	tokens := make([]string, 0, len(text))
	for _, r := range text {
		t := string(r)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}

// Fields splits on whitespace and lower-cases each token. An alternative
// for fields holding space-delimited western text.
func Fields(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

// Whole treats the entire value as a single token (equality matching).
func Whole(text string) []string {
	return []string{text}
}
