package bundle

import "testing"

func TestFlatten(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"file.csv", "file.csv"},
		{"data/file.csv", "data/file.csv"},
		{"data/2024/jan/a.csv", "jan/a.csv"},
		{"data/2024/feb/b.csv", "feb/b.csv"},
		{"a/b/c/d/e.txt", "d/e.txt"},
		{"prefix/leaf/", "prefix/leaf"},
	}

	for _, tc := range cases {
		if got := Flatten(tc.key); got != tc.want {
			t.Errorf("Flatten(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestFlattenCollision(t *testing.T) {
	// Distinct ancestors with identical last two segments collide by design.
	a := Flatten("2023/reports/jan/a.csv")
	b := Flatten("2024/archive/jan/a.csv")
	if a != b {
		t.Errorf("expected collision, got %q and %q", a, b)
	}
	if a != "jan/a.csv" {
		t.Errorf("Flatten = %q, want jan/a.csv", a)
	}
}
