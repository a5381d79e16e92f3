package mfpipe

// Options configures a Pipe at Create/Open time. All fields are optional;
// the zero Options yields the library's defaults.
type Options struct {
	mtu        int
	maxBuffers int
	hints      string
}

// Option mutates an Options value. Mirrors the original's loosely-typed
// strHints/_nMaxBuffers parameters as a proper functional-option surface.
type Option func(*Options)

// WithMTU overrides the transport's per-packet MTU (default 1500).
func WithMTU(mtu int) Option {
	return func(o *Options) { o.mtu = mtu }
}

// WithMaxBuffers sets a hint for the number of in-flight buffers an Open
// peer expects to need. Mirrors PipeOpen's _nMaxBuffers parameter, which
// the original implementation accepts but never acts on; kept here for API
// parity, not enforced as a hard cap (internal/bufpool always grows on
// demand rather than rejecting allocation past a count).
func WithMaxBuffers(n int) Option {
	return func(o *Options) { o.maxBuffers = n }
}

// WithHints attaches an opaque hints string, mirroring the original's
// strHints parameter. No hint strings carry defined semantics in this
// implementation; the value is accepted and not kept by the Pipe.
func WithHints(hints string) Option {
	return func(o *Options) { o.hints = hints }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
