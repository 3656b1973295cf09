package app

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxCommitRetries = 5
	commitBackoff           = 2 * time.Millisecond
)

// commitWithRetry runs a read-modify-write closure until the store accepts the
// write. fn must reload its inputs on every call; a domain.ErrVersionConflict
// means another writer won and the result must be recomputed.
func commitWithRetry(ctx context.Context, log logrus.FieldLogger, maxAttempts int, op string, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxCommitRetries
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		log.WithFields(logrus.Fields{"op": op, "attempt": attempt}).Debug("version conflict, recomputing")
		if attempt == maxAttempts {
			break
		}
		delay := time.Duration(attempt)*commitBackoff + time.Duration(rand.Int63n(int64(commitBackoff)))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
