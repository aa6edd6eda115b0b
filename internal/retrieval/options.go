package retrieval

import "go.uber.org/zap"

type options struct {
	logger   *zap.Logger
	observer Observer
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver reports one Event per Retrieve call to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
