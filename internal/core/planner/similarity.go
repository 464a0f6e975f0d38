package planner

import (
	"path"
	"strings"

	"github.com/agext/levenshtein"
)

// pathSimilarity scores how likely two relative paths refer to the same
// logical file, in [0,1]. A case-insensitive filename match scores 0.95
// outright; otherwise the filename edit distance dominates with the
// directory as a weaker signal.
func pathSimilarity(p1, p2 string) float64 {
	name1 := path.Base(p1)
	name2 := path.Base(p2)

	if strings.EqualFold(name1, name2) {
		return 0.95
	}

	nameSim := nameSimilarity(name1, name2)
	dirSim := jaccardSimilarity(path.Dir(p1), path.Dir(p2))

	return nameSim*0.7 + dirSim*0.3
}

// nameSimilarity is the normalized Levenshtein similarity of two filenames
func nameSimilarity(name1, name2 string) float64 {
	return levenshtein.Similarity(name1, name2, levenshtein.NewParams())
}

// jaccardSimilarity compares the character sets of two strings.
// Cheap and good enough for directory paths.
func jaccardSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}

	set1 := make(map[rune]struct{}, len(s1))
	for _, r := range s1 {
		set1[r] = struct{}{}
	}
	set2 := make(map[rune]struct{}, len(s2))
	for _, r := range s2 {
		set2[r] = struct{}{}
	}

	intersection := 0
	for r := range set1 {
		if _, ok := set2[r]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
