package storagemodels

import "time"

// SubscribeOptions configures a change-notification channel.
type SubscribeOptions struct {
	BufferSize   int              // Channel buffer size (default: 64)
	PollInterval time.Duration    // Polling cadence for poll-based feeds (default: 1s)
	MaxRetries   int              // Reconnect attempts for transient errors (default: 3)
	RetryBackoff time.Duration    // Base backoff between reconnects (default: 1s)
	ErrorHandler func(error) bool // Return true to continue, false to stop the feed
}

// SubscribeOption is a functional option for configuring a change feed.
type SubscribeOption func(*SubscribeOptions)

// DefaultSubscribeOptions returns default subscription options.
func DefaultSubscribeOptions() SubscribeOptions {
	return SubscribeOptions{
		BufferSize:   64,
		PollInterval: time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) SubscribeOption {
	return func(opts *SubscribeOptions) {
		opts.BufferSize = size
	}
}

// WithPollInterval sets the polling cadence for poll-based feeds.
func WithPollInterval(d time.Duration) SubscribeOption {
	return func(opts *SubscribeOptions) {
		opts.PollInterval = d
	}
}

// WithMaxRetries sets the maximum reconnect attempts.
func WithMaxRetries(retries int) SubscribeOption {
	return func(opts *SubscribeOptions) {
		opts.MaxRetries = retries
	}
}

// WithRetryBackoff sets the base backoff between reconnects.
func WithRetryBackoff(backoff time.Duration) SubscribeOption {
	return func(opts *SubscribeOptions) {
		opts.RetryBackoff = backoff
	}
}

// WithErrorHandler sets a handler that decides whether the feed continues
// after a transport error.
func WithErrorHandler(handler func(error) bool) SubscribeOption {
	return func(opts *SubscribeOptions) {
		opts.ErrorHandler = handler
	}
}
