// Package refiner promotes qualifying cost records into the canonical
// transaction ledger without creating duplicates.
package refiner

import (
	"errors"
	"fmt"

	"github.com/costledger/backend/internal/models"
	"gorm.io/gorm"
)

// Cost records qualify for refinement when the leading digit of their
// 4-digit account number is 4 or greater.
const (
	accountFloor = 4000
	accountCeil  = 9999
)

// Result sums up one refinement run. Processed is always Created + Skipped.
type Result struct {
	Processed int `json:"processed"` // Cost records matching the inclusion predicate
	Created   int `json:"created"`   // Transactions created in this run
	Skipped   int `json:"skipped"`   // Cost records whose Vernr already had a transaction
}

// Refine scans the cost store for records matching the inclusion predicate
// and creates a transaction for every verification number that does not
// have one yet.
//
// Refine is idempotent: a second run with no new cost data skips every
// record. A store error aborts the scan and is returned together with the
// counts committed so far, transactions already created are not rolled back.
func Refine(db *gorm.DB) (Result, error) {
	var result Result

	var costs []models.Cost
	err := db.
		Where("account_number >= ? AND account_number <= ?", accountFloor, accountCeil).
		Order("vernr ASC").
		Find(&costs).Error
	if err != nil {
		return result, fmt.Errorf("could not query the cost store: %w", err)
	}

	for i := range costs {
		cost := costs[i]

		// A struct condition would drop a zero-valued Vernr from the
		// query, so the predicate is spelled out
		var existing models.Transaction
		err := db.Where("vernr = ?", cost.Vernr).First(&existing).Error
		if err != nil && !errors.Is(err, models.ErrResourceNotFound) {
			return result, fmt.Errorf("could not check for an existing transaction: %w", err)
		}

		result.Processed++

		// An existing transaction is the expected outcome for re-runs,
		// not an error
		if err == nil {
			result.Skipped++
			continue
		}

		transaction := cost.Transaction()
		if err := db.Create(&transaction).Error; err != nil {
			result.Processed--
			return result, fmt.Errorf("could not create transaction for vernr %q: %w", cost.Vernr, err)
		}

		result.Created++
	}

	return result, nil
}
