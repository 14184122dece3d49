// Package enricher assigns normalized supplier names to transactions based
// on their free-text transaction info.
//
// Texts are resolved in two stages: supplier rules (local glob patterns)
// first, then one batched call to the external classifier for everything
// the rules did not cover. Each resolved text drives a single bulk update
// across all transactions sharing it.
package enricher

import (
	"context"
	"fmt"
	"sort"

	"github.com/costledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/ryanuber/go-glob"
	"gorm.io/gorm"
)

// Classifier maps a batch of free-text transaction descriptions to
// normalized supplier names.
//
// The mapping is produced by an external AI service and is treated as a
// black box: it does not have to be deterministic across calls, and it may
// omit texts or map them to an empty string. Implementations must be
// bounded by the context deadline.
type Classifier interface {
	Classify(ctx context.Context, texts []string) (map[string]string, error)
}

// Result sums up one enrichment run.
type Result struct {
	UniqueTexts int               `json:"unique_texts_processed"` // Distinct texts considered
	Updated     int64             `json:"transactions_updated"`   // Transactions that received a supplier name
	Mappings    map[string]string `json:"supplier_mappings"`      // The applied text to supplier mapping
	Failed      []string          `json:"failed_texts,omitempty"` // Texts whose bulk update failed
}

// Enricher runs the supplier enrichment.
type Enricher struct {
	classifier Classifier
}

// New returns an Enricher using the given classifier.
func New(classifier Classifier) *Enricher {
	return &Enricher{classifier: classifier}
}

// Enrich assigns supplier names to all transactions whose transaction info
// could be classified.
//
// The classifier is called at most once per run, with the distinct texts
// not covered by supplier rules. A classifier failure is fatal for the
// whole run and nothing is applied. A failed bulk update for one text group
// is recorded and the remaining groups still proceed. Enrich is idempotent:
// re-running overwrites the supplier names with the newest classification.
func (e *Enricher) Enrich(ctx context.Context, db *gorm.DB) (Result, error) {
	texts, err := models.DistinctTransactionInfos(db)
	if err != nil {
		return Result{}, fmt.Errorf("could not query transaction info texts: %w", err)
	}

	result := Result{
		UniqueTexts: len(texts),
		Mappings:    make(map[string]string),
	}

	// Nothing to classify, the external service is not called
	if len(texts) == 0 {
		return result, nil
	}

	remaining, err := e.applyRules(db, texts, result.Mappings)
	if err != nil {
		return Result{}, err
	}

	if len(remaining) > 0 {
		classified, err := e.classifier.Classify(ctx, remaining)
		if err != nil {
			return Result{}, fmt.Errorf("could not classify transaction info texts: %w", err)
		}

		for text, supplier := range classified {
			result.Mappings[text] = supplier
		}
	}

	// Apply groups in a stable order so that partial failures are
	// reproducible
	ordered := make([]string, 0, len(result.Mappings))
	for text := range result.Mappings {
		ordered = append(ordered, text)
	}
	sort.Strings(ordered)

	for _, text := range ordered {
		supplier := result.Mappings[text]

		// The classifier could not name a supplier for this text,
		// the group is left untouched
		if supplier == "" {
			delete(result.Mappings, text)
			continue
		}

		updated, err := models.SetSupplierName(db, text, supplier)
		if err != nil {
			log.Error().Err(err).Str("text", text).Msg("could not apply supplier name")
			result.Failed = append(result.Failed, text)
			delete(result.Mappings, text)
			continue
		}

		result.Updated += updated
	}

	return result, nil
}

// applyRules resolves texts through the supplier rules and returns the
// texts that still need the classifier.
func (e *Enricher) applyRules(db *gorm.DB, texts []string, mappings map[string]string) ([]string, error) {
	var rules []models.SupplierRule
	err := db.Order("priority ASC").Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("could not load supplier rules: %w", err)
	}

	var remaining []string

	for _, text := range texts {
		supplier, ok := match(rules, text)
		if !ok {
			remaining = append(remaining, text)
			continue
		}

		mappings[text] = supplier
	}

	return remaining, nil
}

// match returns the supplier name of the first rule matching the text.
// Rules are already sorted by priority.
func match(rules []models.SupplierRule, text string) (string, bool) {
	for _, rule := range rules {
		if glob.Glob(rule.Match, text) {
			return rule.SupplierName, true
		}
	}

	return "", false
}
