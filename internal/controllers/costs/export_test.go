package costs

import (
	"github.com/costledger/backend/internal/enricher"
)

// SetClassifierFactory swaps the classifier used by the enrichment endpoint
// so tests can inject a deterministic stub. It returns a function restoring
// the previous factory.
func SetClassifierFactory(f func() enricher.Classifier) func() {
	previous := newClassifier
	newClassifier = f
	return func() { newClassifier = previous }
}
