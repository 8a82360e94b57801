//go:build fmdebug

package fm

// assertNotFull treats a queue overrun as a backend bug in debug builds.
func assertNotFull() {
	panic(ErrQueueFull)
}
