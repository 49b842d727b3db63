package ml

import "errors"

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrDimension        = errors.New("feature dimension mismatch")
	ErrLabelCount       = errors.New("label count does not match sample count")
	ErrNotFitted        = errors.New("model is not fitted")
)
