package service

import (
	"context"
	"math/rand"
	"time"
)

// retry calls fn up to attempts times, doubling base between attempts with
// ±20% jitter. It returns the last error.
func retry(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		wait := base << (attempt - 1)
		wait = time.Duration(float64(wait) * (0.8 + rand.Float64()*0.4))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
