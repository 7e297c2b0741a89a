package bus

import "log/slog"

// Option configures a Bus.
type Option func(*Bus)

// WithImmediateErrors sets the default for the immediate error flag used by
// Publish and PublishSync when the caller does not pass ImmediateErrors.
func WithImmediateErrors(immediate bool) Option {
	return func(b *Bus) {
		b.immediate = immediate
	}
}

// WithTap registers a callback invoked once for every publish call, after
// archival and before delivery. Used for journaling and tracing.
func WithTap(tap func(Event)) Option {
	return func(b *Bus) {
		b.tap = tap
	}
}

// WithLogger sets the logger for debug output. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// PublishOption configures a single publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	archive   bool
	immediate bool
}

// NoArchive skips archiving the message, so later subscribers never see it.
func NoArchive() PublishOption {
	return func(o *publishOptions) {
		o.archive = false
	}
}

// ImmediateErrors overrides the bus default for the immediate error flag.
func ImmediateErrors(immediate bool) PublishOption {
	return func(o *publishOptions) {
		o.immediate = immediate
	}
}

// SubscribeOption configures a single subscribe call.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	replay bool
}

// NoReplay registers the subscription without replaying the archive.
func NoReplay() SubscribeOption {
	return func(o *subscribeOptions) {
		o.replay = false
	}
}
