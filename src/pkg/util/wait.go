package util

import (
	"context"
	"time"
)

/*
WaitForSeconds blocks for the given number of seconds or until ctx is done.

Returns ctx.Err() when the wait was cut short, nil otherwise.
*/
func WaitForSeconds(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
