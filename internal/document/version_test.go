package document

import "testing"

func TestSchemaVersionCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"10.0", "2.0", 1},
		{"2.0", "10.0", -1},
		{"1.0", "1.0.0", 0},
		{"1.2", "1.2", 0},
		{"1.2.3", "1.2.4", -1},
		{"1.10", "1.9", 1},
	}
	for _, c := range cases {
		got := SchemaVersion(c.a).Compare(SchemaVersion(c.b))
		if sign(got) != sign(c.want) {
			t.Errorf("Compare(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestSchemaVersionEqual(t *testing.T) {
	if !SchemaVersion("2.0").Equal("2.0.0") {
		t.Fatalf("expected 2.0 == 2.0.0")
	}
	if SchemaVersion("2.0").Equal("2.1") {
		t.Fatalf("expected 2.0 != 2.1")
	}
}
