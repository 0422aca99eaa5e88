package analysis

import (
	"errors"
	"fmt"
)

// ErrLimitExceeded is returned when a request asks for more work than the
// service allows.
var ErrLimitExceeded = errors.New("limit exceeded")

// Limits bounds the request-controlled sizes that drive allocation. A zero
// field is unbounded.
type Limits struct {
	MaxIterations       int
	MaxSensitivitySteps int
	MaxMatrixOrder      int
	MaxEvaluators       int
}

func (l Limits) CheckIterations(n int) error {
	if l.MaxIterations > 0 && n > l.MaxIterations {
		return fmt.Errorf("%w: %d iterations exceeds limit %d", ErrLimitExceeded, n, l.MaxIterations)
	}
	return nil
}

func (l Limits) CheckSensitivitySteps(n int) error {
	if l.MaxSensitivitySteps > 0 && n > l.MaxSensitivitySteps {
		return fmt.Errorf("%w: %d sweep steps exceeds limit %d", ErrLimitExceeded, n, l.MaxSensitivitySteps)
	}
	return nil
}

// CheckMatrixOrder bounds the number of items in one comparison matrix.
func (l Limits) CheckMatrixOrder(n int) error {
	if l.MaxMatrixOrder > 0 && n > l.MaxMatrixOrder {
		return fmt.Errorf("%w: %d items exceeds limit %d", ErrLimitExceeded, n, l.MaxMatrixOrder)
	}
	return nil
}

// CheckEvaluators bounds the number of matrices in one group aggregation.
func (l Limits) CheckEvaluators(n int) error {
	if l.MaxEvaluators > 0 && n > l.MaxEvaluators {
		return fmt.Errorf("%w: %d evaluators exceeds limit %d", ErrLimitExceeded, n, l.MaxEvaluators)
	}
	return nil
}

// CheckHierarchy bounds the criteria matrix and every per-criterion
// alternatives matrix of h.
func (l Limits) CheckHierarchy(h Hierarchy) error {
	if err := l.CheckMatrixOrder(len(h.Criteria)); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}
	if err := l.CheckMatrixOrder(len(h.Alternatives)); err != nil {
		return fmt.Errorf("alternatives: %w", err)
	}
	return nil
}
