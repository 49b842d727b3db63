package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes features to zero mean and unit variance.
// Features names the columns in the order the scaler was fitted on.
type StandardScaler struct {
	Features []string
	Mean     []float64
	Scale    []float64
}

// FitStandardScaler computes per-column population mean and standard deviation.
// Columns with zero variance keep a scale of 1.
func FitStandardScaler(features []string, X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	width := len(features)
	s := &StandardScaler{
		Features: append([]string(nil), features...),
		Mean:     make([]float64, width),
		Scale:    make([]float64, width),
	}
	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, row := range X {
			if len(row) != width {
				return nil, fmt.Errorf("row %d: %w: got %d, want %d", i, ErrDimension, len(row), width)
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = 1
		if sd := math.Sqrt(variance); sd > 0 {
			s.Scale[j] = sd
		}
	}
	return s, nil
}

// Transform returns a standardized copy of x
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll standardizes every row of X
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
