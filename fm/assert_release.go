//go:build !fmdebug

package fm

func assertNotFull() {}
