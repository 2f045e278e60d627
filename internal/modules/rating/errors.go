package rating

import (
	"errors"
	"fmt"
)

var ErrAggregationFailed = errors.New("rating aggregation failed")

// AggregationFailedError reports that a restaurant's aggregate could not be
// recomputed. The mutation that triggered it is already committed; calling
// Recompute again is the remedy.
type AggregationFailedError struct {
	RestaurantID int64
	Err          error
}

func (e *AggregationFailedError) Error() string {
	return fmt.Sprintf("recompute rating for restaurant %d: %v", e.RestaurantID, e.Err)
}

func (e *AggregationFailedError) Unwrap() error {
	return e.Err
}

func (e *AggregationFailedError) Is(target error) bool {
	return target == ErrAggregationFailed
}
