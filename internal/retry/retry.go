package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded retry policy with a fixed delay between attempts.
// It is injected into store writes that follow a successful provider
// mutation: the single extra attempt smooths over transient contention,
// not network partition, so the delay stays short and constant.
type Policy struct {
	Attempts uint64
	Delay    time.Duration
}

// DefaultLocalWrite is the policy for the post-mutation local write:
// one retry after a short fixed delay.
var DefaultLocalWrite = Policy{Attempts: 2, Delay: 300 * time.Millisecond}

// Do runs op under the policy, stopping early when the context is done
func (p Policy) Do(ctx context.Context, op func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), p.Attempts-1),
		ctx,
	)
	return backoff.Retry(op, b)
}
