package planner

import "testing"

func TestPathSimilarity_CaseInsensitiveNameMatch(t *testing.T) {
	got := pathSimilarity("docs/Report.TXT", "archive/report.txt")
	if got != 0.95 {
		t.Errorf("similarity = %v, want 0.95 for matching names", got)
	}
}

func TestPathSimilarity_IdenticalPaths(t *testing.T) {
	if got := pathSimilarity("a/b/c.txt", "a/b/c.txt"); got != 0.95 {
		t.Errorf("similarity = %v, want 0.95", got)
	}
}

func TestPathSimilarity_OrderIndependent(t *testing.T) {
	a, b := "src/main-v1.go", "lib/main-v2.go"
	if pathSimilarity(a, b) != pathSimilarity(b, a) {
		t.Error("similarity is not symmetric")
	}
}

func TestPathSimilarity_Ranking(t *testing.T) {
	base := "photos/2024/beach.jpg"
	near := pathSimilarity(base, "photos/2023/beach-2.jpg")
	far := pathSimilarity(base, "invoices/q3-totals.xlsx")
	if near <= far {
		t.Errorf("similar path scored %v, dissimilar %v; want strict ordering", near, far)
	}
}

func TestNameSimilarity_Bounds(t *testing.T) {
	if got := nameSimilarity("same.txt", "same.txt"); got != 1.0 {
		t.Errorf("identical names = %v, want 1.0", got)
	}
	if got := nameSimilarity("abc", "xyz"); got != 0.0 {
		t.Errorf("disjoint names = %v, want 0.0", got)
	}
}

func TestNameSimilarity_SingleEdit(t *testing.T) {
	got := nameSimilarity("notes-v1.txt", "notes-v2.txt")
	if got < 0.9 {
		t.Errorf("one-character edit scored %v, want >= 0.9", got)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"abc", "abc", 1.0},
		{"", "abc", 0.0},
		{"abc", "", 0.0},
		{"ab", "bc", 1.0 / 3.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := jaccardSimilarity(tt.s1, tt.s2); got != tt.want {
			t.Errorf("jaccardSimilarity(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.want)
		}
	}
}
