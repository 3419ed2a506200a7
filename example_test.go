package slotpool_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/slotpool"
	"github.com/coachpo/slotpool/errs"
)

type session struct {
	id int
}

func ExamplePool_With() {
	var next int
	pool, err := slotpool.New("sessions", 2, func() (*session, error) {
		next++
		return &session{id: next}, nil
	})
	if err != nil {
		fmt.Println("build pool:", err)
		return
	}

	// Sequential borrows reuse the single object created on first use.
	for i := 0; i < 3; i++ {
		_ = pool.With(context.Background(), func(s *session) error {
			fmt.Println("using session", s.id)
			return nil
		})
	}
	// Output:
	// using session 1
	// using session 1
	// using session 1
}

func ExamplePool_With_retryOnExhaustion() {
	pool, err := slotpool.New("sessions", 1,
		func() (*session, error) { return &session{id: 1}, nil },
		slotpool.WithWaitTimeout[*session](10*time.Millisecond),
	)
	if err != nil {
		fmt.Println("build pool:", err)
		return
	}

	// Exhaustion is a distinguishable error code, so callers can back off
	// and retry instead of matching message strings.
	policy := backoff.NewExponentialBackOff()
	for {
		err := pool.With(context.Background(), func(s *session) error {
			fmt.Println("session", s.id, "acquired")
			return nil
		})
		if errs.IsCode(err, errs.CodeExhausted) {
			time.Sleep(policy.NextBackOff())
			continue
		}
		if err != nil {
			fmt.Println("borrow:", err)
		}
		break
	}
	// Output:
	// session 1 acquired
}
