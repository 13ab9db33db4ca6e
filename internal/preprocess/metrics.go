package preprocess

import (
	"gonum.org/v1/gonum/stat"
)

// InkThreshold is the intensity above which a normalized sample counts as drawn.
const InkThreshold = 0.1

// TensorStats summarizes the intensities of a normalized tensor.
type TensorStats struct {
	Mean     float64
	StdDev   float64
	InkRatio float64
}

// Stats computes intensity statistics over every sample of t. A blank canvas has a
// zero InkRatio.
func Stats(t *Tensor) TensorStats {
	if t == nil || len(t.Data) == 0 {
		return TensorStats{}
	}

	values := make([]float64, len(t.Data))
	ink := 0
	for i, v := range t.Data {
		values[i] = float64(v)
		if v > InkThreshold {
			ink++
		}
	}

	s := TensorStats{InkRatio: float64(ink) / float64(len(values))}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}
