package parser

import "testing"

func hasTerm(set map[Term]struct{}, field, value string) bool {
	_, ok := set[Term{Field: field, Value: value}]
	return ok
}

func TestParseWantAndUnwant(t *testing.T) {
	q := Parse("age:30 -name:bob +city:berlin")

	if len(q.Want) != 2 {
		t.Fatalf("want terms = %d, expected 2", len(q.Want))
	}
	if !hasTerm(q.Want, "age", "30") || !hasTerm(q.Want, "city", "berlin") {
		t.Errorf("missing want terms: %v", q.Want)
	}
	if len(q.Unwant) != 1 || !hasTerm(q.Unwant, "name", "bob") {
		t.Errorf("unwant terms = %v, expected name:bob", q.Unwant)
	}
}

func TestParseCommaValueStaysWhole(t *testing.T) {
	q := Parse("age:30,40")
	if !hasTerm(q.Want, "age", "30,40") {
		t.Errorf("comma value split too early: %v", q.Want)
	}
}

func TestParseDuplicatesCollapse(t *testing.T) {
	q := Parse("age:30 age:30 age:30")
	if len(q.Want) != 1 {
		t.Errorf("duplicate terms should collapse, got %v", q.Want)
	}
}

func TestParseScanIsNotWhitespaceDelimited(t *testing.T) {
	// Terms are extracted wherever they match, even embedded in noise.
	q := Parse("hello age:30 world")
	if !hasTerm(q.Want, "age", "30") {
		t.Errorf("embedded term not found: %v", q.Want)
	}
	if len(q.Want) != 1 {
		t.Errorf("noise words should not produce terms, got %v", q.Want)
	}
}

func TestParseNoTermsIsEmptyNotError(t *testing.T) {
	for _, in := range []string{"", "   ", "just words", ":nofield", "-"} {
		q := Parse(in)
		if !q.Empty() {
			t.Errorf("Parse(%q) should be empty, got %v", in, q.Want)
		}
		if len(q.Unwant) != 0 {
			t.Errorf("Parse(%q) produced unwant terms: %v", in, q.Unwant)
		}
	}
}

func TestParsePlusSignIsWanted(t *testing.T) {
	q := Parse("+age:30")
	if !hasTerm(q.Want, "age", "30") {
		t.Errorf("+term should be wanted: %v", q.Want)
	}
	if len(q.Unwant) != 0 {
		t.Errorf("+term must not be unwanted: %v", q.Unwant)
	}
}
