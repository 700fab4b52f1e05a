package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrPollTimeout is returned when Poll exhausts its time budget.
var ErrPollTimeout = errors.New("poll timed out")

// ErrTooLarge is returned by ReadLimited when the body exceeds the limit.
var ErrTooLarge = errors.New("response body too large")

// PollOptions control the delay schedule of Poll.
type PollOptions struct {
	Initial time.Duration // first delay
	Factor  float64       // delay multiplier after each attempt
	Max     time.Duration // delay cap
	Timeout time.Duration // overall budget
}

// DefaultPoll starts at one second, grows by half each round up to five
// seconds and gives up after a minute.
var DefaultPoll = PollOptions{
	Initial: time.Second,
	Factor:  1.5,
	Max:     5 * time.Second,
	Timeout: 60 * time.Second,
}

// Poll calls check until it returns done, returns an error, or the budget
// in opts.Timeout is used up. check runs immediately on the first round.
func Poll(ctx context.Context, opts PollOptions, check func(context.Context) (bool, error)) error {
	if opts.Factor < 1 {
		opts.Factor = 1
	}
	delay := opts.Initial
	deadline := time.Now().Add(opts.Timeout)

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !time.Now().Add(delay).Before(deadline) {
			return fmt.Errorf("%w after %s", ErrPollTimeout, opts.Timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*opts.Factor), opts.Max)
	}
}

// ReadLimited reads r fully, failing with ErrTooLarge past limit bytes.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}
