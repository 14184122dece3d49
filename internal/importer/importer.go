// Package importer persists parsed cost records into the cost store,
// applying the duplicate strategy of the upload.
package importer

import (
	"errors"
	"fmt"

	"github.com/costledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Import stores the parsed cost records according to the duplicate strategy.
//
// The batch is best-effort: a failure to persist one record is counted and
// the batch proceeds, records persisted before a failure are never rolled
// back. Only an unusable store aborts the import, with the partial result.
func Import(db *gorm.DB, costs []models.Cost, strategy DuplicateStrategy) (Result, error) {
	var result Result

	for i := range costs {
		cost := costs[i]

		existing, found, err := lookup(db, cost.Vernr, strategy)
		if err != nil {
			return result, fmt.Errorf("could not check for an existing cost record: %w", err)
		}

		switch {
		case found && strategy == StrategySkip:
			result.Skipped++
			continue

		case found && strategy == StrategyReplace:
			// Overwrite in place: the document keeps its identity
			cost.DefaultModel = existing.DefaultModel
			if err := db.Save(&cost).Error; err != nil {
				result.Failed++
				log.Error().Err(err).Str("vernr", cost.Vernr).Msg("could not replace cost record")
				continue
			}
			result.Replaced++

		default:
			if err := db.Create(&cost).Error; err != nil {
				result.Failed++
				log.Error().Err(err).Str("vernr", cost.Vernr).Msg("could not insert cost record")
				continue
			}
			result.Inserted++
		}
	}

	return result, nil
}

// lookup checks the cost store for an existing record with this Vernr. The
// "keep" strategy never needs the check.
func lookup(db *gorm.DB, vernr string, strategy DuplicateStrategy) (models.Cost, bool, error) {
	if strategy == StrategyKeep {
		return models.Cost{}, false, nil
	}

	var existing models.Cost
	err := db.Where("vernr = ?", vernr).First(&existing).Error
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			return models.Cost{}, false, nil
		}
		return models.Cost{}, false, err
	}

	return existing, true, nil
}
