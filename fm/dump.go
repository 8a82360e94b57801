package fm

// DumpSink receives a copy of every committed write while capture is active.
type DumpSink interface {
	AddWrite(addr uint32, val uint16)
}

// RegisterWrite is one captured write.
type RegisterWrite struct {
	Addr uint32
	Val  uint16
}

// WriteLog is an in-memory DumpSink.
type WriteLog struct {
	writes []RegisterWrite
}

// AddWrite implements DumpSink.
func (l *WriteLog) AddWrite(addr uint32, val uint16) {
	l.writes = append(l.writes, RegisterWrite{Addr: addr, Val: val})
}

// Len returns the number of captured writes.
func (l *WriteLog) Len() int {
	return len(l.writes)
}

// Take returns the captured writes and empties the log.
func (l *WriteLog) Take() []RegisterWrite {
	out := l.writes
	l.writes = nil
	return out
}
