package app

import (
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// effectBatch runs side effects after a committed write. A failing effect is
// recorded and logged; later effects still run and nothing is returned to the caller.
type effectBatch struct {
	log      logrus.FieldLogger
	failures []error
}

func newEffectBatch(log logrus.FieldLogger) *effectBatch {
	return &effectBatch{log: log}
}

func (b *effectBatch) run(effect string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			b.record(effect, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		b.record(effect, err)
	}
}

func (b *effectBatch) record(effect string, err error) {
	derr := &domain.DownstreamError{Effect: effect, Err: err}
	b.failures = append(b.failures, derr)
	b.log.WithField("effect", effect).WithError(err).Warn("side effect failed")
}

// Failures returns every captured *domain.DownstreamError in run order.
func (b *effectBatch) Failures() []error {
	return b.failures
}
