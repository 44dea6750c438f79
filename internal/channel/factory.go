//go:build !debug

package channel

// New returns a buffered channel of the given size. Debug builds hand out
// unbuffered channels instead so ordering bugs surface sooner.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
