package keyshare

import "log"

// Options controls how Open constructs a Handle.
type Options struct {
	Logger *log.Logger
}

// Option mutates an Options under construction.
type Option func(*Options)

// WithLogger redirects a Handle's diagnostic logging (reaper sweep counts,
// membership adoption events) to logger instead of log.Default().
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func resolveOptions(opts []Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}
