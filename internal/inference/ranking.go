package inference

import (
	"fmt"
	"sort"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/pkg/models"
)

// DefaultTopK is the number of predictions returned when the caller does not ask.
const DefaultTopK = 3

// TopK returns the k most probable labels in descending order of confidence. Equal
// probabilities keep their label order. k larger than the label count returns every
// label.
func TopK(probs []float32, labels []string, k int) ([]Prediction, error) {
	if k < 1 {
		return nil, apperrors.NewValidationError(apperrors.StageRank,
			fmt.Sprintf("top_k must be >= 1, got %d", k), nil)
	}
	if len(probs) != len(labels) {
		return nil, apperrors.NewValidationError(apperrors.StageRank,
			fmt.Sprintf("model returned %d scores for %d labels", len(probs), len(labels)), nil)
	}

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}
	out := make([]Prediction, 0, k)
	for _, i := range idx[:k] {
		out = append(out, models.NewPrediction(labels[i], float64(probs[i])))
	}
	return out, nil
}
