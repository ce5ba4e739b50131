package framegraph

import "time"

// Option configures a Graph during creation.
//
// Example:
//
//	g := framegraph.New(dev,
//	    framegraph.WithTiming(true),
//	    framegraph.WithRetireTimeout(2*time.Second),
//	)
type Option func(*options)

// options holds optional configuration for Graph creation.
type options struct {
	label           string
	timing          bool
	timestampBudget int
	retireTimeout   time.Duration
	observer        Observer
}

// DefaultTimestampBudget is the number of timestamp queries available per
// generation when timing is enabled. Each pass consumes three.
const DefaultTimestampBudget = 3 * 256

// DefaultRetireTimeout bounds how long Reset waits for a queue to retire.
const DefaultRetireTimeout = 5 * time.Second

// defaultOptions returns the default graph options.
func defaultOptions() options {
	return options{
		label:           "framegraph",
		timestampBudget: DefaultTimestampBudget,
		retireTimeout:   DefaultRetireTimeout,
	}
}

// WithLabel sets the prefix used for command buffer and object labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithTiming enables GPU timestamp bracketing of every pass. Results of a
// generation become available through Timings after the following Reset.
// Timing is silently disabled when the device reports a zero timestamp period.
func WithTiming(enabled bool) Option {
	return func(o *options) {
		o.timing = enabled
	}
}

// WithTimestampBudget sets the number of timestamp queries per generation.
// Recording more passes than budget/3 with timing enabled is a contract
// violation.
func WithTimestampBudget(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.timestampBudget = n
		}
	}
}

// WithRetireTimeout sets how long Reset waits on each queue timeline.
func WithRetireTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retireTimeout = d
		}
	}
}

// WithObserver registers an observer that receives per-frame statistics
// at the end of every Execute.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
