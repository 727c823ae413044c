package cache

import "testing"

func TestNormalizeQueryIsOrderInsensitive(t *testing.T) {
	a := normalizeQuery("age:30 name:an -city:x")
	b := normalizeQuery("name:an -city:x age:30")
	if a != b {
		t.Errorf("normalized forms differ: %q vs %q", a, b)
	}
}

func TestNormalizeQuerySeparatesUnwant(t *testing.T) {
	with := normalizeQuery("age:30 -name:bob")
	without := normalizeQuery("age:30 name:bob")
	if with == without {
		t.Errorf("want and unwant terms must not normalize alike: %q", with)
	}
}

func TestBuildKeyVariesWithWindow(t *testing.T) {
	c := &PageCache{}
	k1 := c.buildKey("person", "age:30", "+age", 0, 9)
	k2 := c.buildKey("person", "age:30", "+age", 10, 19)
	if k1 == k2 {
		t.Error("different windows must not share a cache key")
	}
}
