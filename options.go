package zsplice

type options struct {
	capacity int
	nonblock bool
}

type Option func(o *options)

// WithCapacity sets the pipe capacity. The value is rounded up to a page
// multiple; zero or negative keeps the default of sixteen pages.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithNonblock opens both ends in non-blocking mode, like pipe2 with
// O_NONBLOCK.
func WithNonblock() Option {
	return func(o *options) {
		o.nonblock = true
	}
}
