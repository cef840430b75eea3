package internal

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

// DuplicateStrategy is the closed set of per-run duplicate policies.
type DuplicateStrategy int

const (
	StrategyKeepFirst DuplicateStrategy = iota
	StrategySkipDuplicates
	StrategyPreserveDuplicates
	StrategyCleanupDuplicates
	StrategyDeleteDuplicates
)

func (s DuplicateStrategy) String() string {
	switch s {
	case StrategyKeepFirst:
		return "keep_first"
	case StrategySkipDuplicates:
		return "skip_duplicates"
	case StrategyPreserveDuplicates:
		return "preserve_duplicates"
	case StrategyCleanupDuplicates:
		return "cleanup_duplicates"
	case StrategyDeleteDuplicates:
		return "!delete!"
	}
	return "keep_first"
}

// ParseDuplicateStrategy maps a strategy name to its value. Unknown names
// fall back to keep_first; ok is false so the caller can warn.
func ParseDuplicateStrategy(s string) (strategy DuplicateStrategy, ok bool) {
	switch s {
	case "keep_first", "":
		return StrategyKeepFirst, true
	case "skip_duplicates":
		return StrategySkipDuplicates, true
	case "preserve_duplicates":
		return StrategyPreserveDuplicates, true
	case "cleanup_duplicates":
		return StrategyCleanupDuplicates, true
	case "!delete!":
		return StrategyDeleteDuplicates, true
	}
	return StrategyKeepFirst, false
}

// hashChunkSize bounds memory while hashing arbitrarily large video files.
const hashChunkSize = 8192

// FingerprintFile computes the duplicate composite key: a streamed MD5 over
// the file content combined with the file type category.
func FingerprintFile(path string, category FileCategory) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x_%s", h.Sum(nil), category), nil
}

// FallbackFingerprint is the degraded composite key used when hashing fails:
// filename plus category. Deterministic, but collides on same-named files.
func FallbackFingerprint(filename string, category FileCategory) string {
	return fmt.Sprintf("name:%s_%s", filename, category)
}

// DuplicateGroup holds records sharing a fingerprint, in traversal order.
// "First occurrence" means first encountered during the source walk.
type DuplicateGroup struct {
	Key     string
	Records []*MediaRecord
}

// DetectDuplicates groups records by fingerprint in their original order and
// returns only groups of two or more, in first-seen order.
func DetectDuplicates(records []*MediaRecord) []DuplicateGroup {
	byKey := make(map[string]int)
	var groups []DuplicateGroup
	for _, rec := range records {
		if rec == nil || rec.Fingerprint == "" {
			continue
		}
		idx, seen := byKey[rec.Fingerprint]
		if !seen {
			byKey[rec.Fingerprint] = len(groups)
			groups = append(groups, DuplicateGroup{Key: rec.Fingerprint, Records: []*MediaRecord{rec}})
			continue
		}
		groups[idx].Records = append(groups[idx].Records, rec)
	}

	dupes := groups[:0:0]
	for _, g := range groups {
		if len(g.Records) >= 2 {
			dupes = append(dupes, g)
		}
	}
	return dupes
}

// Resolution is the outcome of applying a strategy to one duplicate group.
type Resolution struct {
	Place    []*MediaRecord // goes through normal placement
	SideArea []*MediaRecord // goes to the duplicates side-area
	Discard  []*MediaRecord // counted, not copied
	Skipped  []*MediaRecord // excluded entirely (skip_duplicates)
}

// ResolveGroup applies a placement strategy to a duplicate group.
// cleanup_duplicates and !delete! are run-level modes handled before any
// group resolution; if they reach here they behave like keep_first.
func ResolveGroup(strategy DuplicateStrategy, group DuplicateGroup) Resolution {
	recs := group.Records
	switch strategy {
	case StrategySkipDuplicates:
		return Resolution{Skipped: recs}
	case StrategyPreserveDuplicates:
		res := Resolution{Place: recs[:1]}
		if len(recs) > 1 {
			res.SideArea = recs[1:2]
		}
		if len(recs) > 2 {
			res.Discard = recs[2:]
		}
		return res
	default:
		return Resolution{Place: recs[:1], Discard: recs[1:]}
	}
}
