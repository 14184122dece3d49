package importer

import (
	"fmt"
)

// DuplicateStrategy decides what happens to an uploaded record whose Vernr
// already exists in the cost store.
type DuplicateStrategy string

const (
	// StrategyKeep inserts every record as a new document, existing
	// documents with the same Vernr are kept.
	StrategyKeep DuplicateStrategy = "keep"

	// StrategySkip discards records whose Vernr already exists.
	StrategySkip DuplicateStrategy = "skip"

	// StrategyReplace overwrites the existing document in place.
	StrategyReplace DuplicateStrategy = "replace"
)

// ParseStrategy parses the duplicate strategy from its request
// representation. An empty value defaults to "keep".
func ParseStrategy(value string) (DuplicateStrategy, error) {
	switch DuplicateStrategy(value) {
	case "":
		return StrategyKeep, nil
	case StrategyKeep, StrategySkip, StrategyReplace:
		return DuplicateStrategy(value), nil
	default:
		return "", fmt.Errorf("unknown duplicate strategy %q, must be one of keep, skip, replace", value)
	}
}

// Result sums up what happened to an uploaded batch. Every record ends up
// in exactly one of the counters.
type Result struct {
	Inserted int `json:"inserted"` // Records stored as new documents
	Skipped  int `json:"skipped"`  // Records discarded because their Vernr already existed
	Replaced int `json:"replaced"` // Records that overwrote an existing document
	Failed   int `json:"failed"`   // Records whose persistence failed
}
