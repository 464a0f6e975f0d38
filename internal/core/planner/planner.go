// Package planner joins fingerprinted source and destination file sets
// and classifies every file into a sync action, detecting renames so
// unchanged content is never re-transferred.
package planner

import (
	"sort"

	"github.com/kestrelsync/kestrel/internal/domain"
)

// DefaultFuzzyThreshold is the minimum normalized filename similarity
// for pairing same-size files as probable renamed-and-edited copies.
const DefaultFuzzyThreshold = 0.5

// Options configures plan construction
type Options struct {
	// DeleteExtraneous enables Delete actions for destination files
	// with no source counterpart
	DeleteExtraneous bool

	// FuzzyThreshold is the minimum filename similarity for fuzzy
	// rename attribution; 0 means DefaultFuzzyThreshold
	FuzzyThreshold float64
}

// Planner builds sync plans from fingerprinted file sets
type Planner struct {
	opts Options
}

// New creates a planner with the given options
func New(opts Options) *Planner {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Planner{opts: opts}
}

// Build joins source set S and destination set D (both path-sorted) and
// produces a deterministic plan: identical inputs always yield identical
// output. Each destination path appears in at most one action and each
// source file resolves to exactly one terminal action.
func (p *Planner) Build(source, dest []domain.FingerprintedFile) *domain.SyncPlan {
	plan := &domain.SyncPlan{}

	destByPath := make(map[string]*domain.FingerprintedFile, len(dest))
	for i := range dest {
		destByPath[dest[i].Path] = &dest[i]
	}

	// Step 1: path join. Same path on both sides settles immediately.
	claimedDest := make(map[string]bool, len(dest))
	var unmatchedSource []*domain.FingerprintedFile

	for i := range source {
		src := &source[i]
		dst, ok := destByPath[src.Path]
		if !ok {
			unmatchedSource = append(unmatchedSource, src)
			continue
		}
		claimedDest[dst.Path] = true
		if src.Fingerprint == dst.Fingerprint {
			plan.Actions = append(plan.Actions, domain.SyncAction{
				Type:   domain.ActionSkip,
				Path:   src.Path,
				Size:   src.Size,
				Source: src,
				Dest:   dst,
				Reason: "content identical",
			})
		} else {
			plan.Actions = append(plan.Actions, domain.SyncAction{
				Type:   domain.ActionCopy,
				Path:   src.Path,
				Size:   src.Size,
				Source: src,
				Dest:   dst,
				Reason: "content modified",
			})
		}
	}

	var unmatchedDest []*domain.FingerprintedFile
	for i := range dest {
		if !claimedDest[dest[i].Path] {
			unmatchedDest = append(unmatchedDest, &dest[i])
		}
	}

	// Step 2: exact rename detection over the unmatched pools.
	unmatchedSource, unmatchedDest = p.detectRenames(plan, unmatchedSource, unmatchedDest)

	// Step 3: fuzzy pairing attributes relocations; content still copies.
	relocatedFrom := p.pairFuzzy(unmatchedSource, unmatchedDest)

	// Step 4: terminal actions for whatever remains.
	for _, src := range unmatchedSource {
		action := domain.SyncAction{
			Type:   domain.ActionCopy,
			Path:   src.Path,
			Size:   src.Size,
			Source: src,
			Reason: "new file",
		}
		if old, ok := relocatedFrom[src.Path]; ok {
			action.Relocated = true
			action.OldPath = old
			action.Reason = "relocated and modified"
		}
		plan.Actions = append(plan.Actions, action)
	}

	if p.opts.DeleteExtraneous {
		for _, dst := range unmatchedDest {
			plan.Actions = append(plan.Actions, domain.SyncAction{
				Type:   domain.ActionDelete,
				Path:   dst.Path,
				Size:   dst.Size,
				Dest:   dst,
				Reason: "no source counterpart",
			})
		}
	}

	sortActions(plan.Actions)
	plan.CalculateStats()
	return plan
}

// detectRenames pairs unmatched destination files with unmatched source
// files of identical fingerprint. Grouping uses the cheap auxiliary hash;
// the full fingerprint confirms every match.
func (p *Planner) detectRenames(plan *domain.SyncPlan, unmatchedSource, unmatchedDest []*domain.FingerprintedFile) ([]*domain.FingerprintedFile, []*domain.FingerprintedFile) {
	destByGroup := make(map[uint64][]*domain.FingerprintedFile, len(unmatchedDest))
	for _, dst := range unmatchedDest {
		destByGroup[dst.GroupKey] = append(destByGroup[dst.GroupKey], dst)
	}

	claimed := make(map[string]bool)
	var stillUnmatched []*domain.FingerprintedFile

	// Source files are path-sorted, so claim order is deterministic.
	for _, src := range unmatchedSource {
		var best *domain.FingerprintedFile
		bestScore := -1.0

		for _, candidate := range destByGroup[src.GroupKey] {
			if claimed[candidate.Path] || candidate.Fingerprint != src.Fingerprint {
				continue
			}
			score := pathSimilarity(src.Path, candidate.Path)
			if score > bestScore || (score == bestScore && candidate.Path < best.Path) {
				bestScore = score
				best = candidate
			}
		}

		if best == nil {
			stillUnmatched = append(stillUnmatched, src)
			continue
		}

		claimed[best.Path] = true
		plan.Actions = append(plan.Actions, domain.SyncAction{
			Type:    domain.ActionRename,
			Path:    src.Path,
			OldPath: best.Path,
			Size:    src.Size,
			Source:  src,
			Dest:    best,
			Reason:  "content moved",
		})
	}

	var remainingDest []*domain.FingerprintedFile
	for _, dst := range unmatchedDest {
		if !claimed[dst.Path] {
			remainingDest = append(remainingDest, dst)
		}
	}
	return stillUnmatched, remainingDest
}

// fuzzyPair is a candidate source/destination relocation pairing
type fuzzyPair struct {
	srcPath string
	dstPath string
	score   float64
}

// pairFuzzy matches remaining unmatched files of equal size whose
// filenames are close in edit distance, as probable renamed-and-edited
// files. The pairing only attributes relocation for statistics; the
// paired destination file stays in its pool, so delete eligibility is
// unchanged. Pairwise comparison is confined to same-size buckets to
// keep cost near-linear.
func (p *Planner) pairFuzzy(unmatchedSource, unmatchedDest []*domain.FingerprintedFile) map[string]string {
	destBySize := make(map[int64][]*domain.FingerprintedFile, len(unmatchedDest))
	for _, dst := range unmatchedDest {
		destBySize[dst.Size] = append(destBySize[dst.Size], dst)
	}

	var pairs []fuzzyPair
	for _, src := range unmatchedSource {
		for _, dst := range destBySize[src.Size] {
			score := nameSimilarity(pathBase(src.Path), pathBase(dst.Path))
			if score >= p.opts.FuzzyThreshold {
				pairs = append(pairs, fuzzyPair{srcPath: src.Path, dstPath: dst.Path, score: score})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].srcPath != pairs[j].srcPath {
			return pairs[i].srcPath < pairs[j].srcPath
		}
		return pairs[i].dstPath < pairs[j].dstPath
	})

	relocatedFrom := make(map[string]string)
	usedDest := make(map[string]bool)
	for _, pair := range pairs {
		if _, ok := relocatedFrom[pair.srcPath]; ok {
			continue
		}
		if usedDest[pair.dstPath] {
			continue
		}
		relocatedFrom[pair.srcPath] = pair.dstPath
		usedDest[pair.dstPath] = true
	}
	return relocatedFrom
}

// sortActions orders the plan lexicographically by destination path for
// reproducibility
func sortActions(actions []domain.SyncAction) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Path != actions[j].Path {
			return actions[i].Path < actions[j].Path
		}
		return actions[i].Type < actions[j].Type
	})
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
