// Package vgm records chip writes as VGM 1.50 files and reads them back.
//
// Supported commands:
//   - SN76489 write (0x50)
//   - YM2612 port 0 and port 1 writes (0x52, 0x53)
//   - waits (0x61, 0x62, 0x63, 0x70-0x7F)
//   - YM2612 DAC bank write + wait (0x80-0x8F), parsed as a wait
//   - data blocks (0x67), skipped
//   - end of data (0x66)
package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// VGM sample clock. Wait commands count samples at this rate.
const SampleRate = 44100

const (
	headerSize = 0x40
	version150 = 0x150
)

// Writer accumulates a VGM command stream. It implements fm.DumpSink so
// it can be attached to a backend as its capture target.
type Writer struct {
	ymClock uint32
	snClock uint32
	rate    uint32

	cmds    bytes.Buffer
	samples uint64
	writes  int
}

// NewWriter creates a Writer for a YM2612 at ymClock Hz and an SN76489 at
// snClock Hz. A zero clock marks the chip absent. tickHz is stored as the
// file's recording rate.
func NewWriter(ymClock, snClock, tickHz int) *Writer {
	return &Writer{
		ymClock: uint32(ymClock),
		snClock: uint32(snClock),
		rate:    uint32(tickHz),
	}
}

// AddWrite records a YM2612 register write. Bit 8 of addr selects port 1.
func (w *Writer) AddWrite(addr uint32, val uint16) {
	cmd := byte(0x52)
	if addr&0x100 != 0 {
		cmd = 0x53
	}
	w.cmds.Write([]byte{cmd, byte(addr), byte(val)})
	w.writes++
}

// AddPSG records an SN76489 byte write.
func (w *Writer) AddPSG(val uint8) {
	w.cmds.Write([]byte{0x50, val})
	w.writes++
}

// Wait advances time by n samples at 44.1 kHz, using the shortest
// encodings available.
func (w *Writer) Wait(n int) {
	if n <= 0 {
		return
	}
	w.samples += uint64(n)
	for n > 0 {
		switch {
		case n == 735:
			w.cmds.WriteByte(0x62)
			n = 0
		case n == 882:
			w.cmds.WriteByte(0x63)
			n = 0
		case n <= 16:
			w.cmds.WriteByte(0x70 + byte(n-1))
			n = 0
		default:
			step := min(n, 0xFFFF)
			w.cmds.WriteByte(0x61)
			binary.Write(&w.cmds, binary.LittleEndian, uint16(step))
			n -= step
		}
	}
}

// SamplesPerTick returns the wait length of one engine tick.
func SamplesPerTick(tickHz int) int {
	return SampleRate / tickHz
}

// Samples returns the recorded length in 44.1 kHz samples.
func (w *Writer) Samples() uint64 {
	return w.samples
}

// Writes returns the number of chip writes recorded.
func (w *Writer) Writes() int {
	return w.writes
}

// WriteTo writes the complete file: header, commands and end marker.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	body := w.cmds.Bytes()
	total := headerSize + len(body) + 1

	var hdr [headerSize]byte
	copy(hdr[0x00:], "Vgm ")
	binary.LittleEndian.PutUint32(hdr[0x04:], uint32(total-0x04))
	binary.LittleEndian.PutUint32(hdr[0x08:], version150)
	binary.LittleEndian.PutUint32(hdr[0x0C:], w.snClock)
	binary.LittleEndian.PutUint32(hdr[0x18:], uint32(w.samples))
	binary.LittleEndian.PutUint32(hdr[0x24:], w.rate)
	if w.snClock != 0 {
		// Sega VDP PSG noise feedback pattern and shift register width
		binary.LittleEndian.PutUint16(hdr[0x28:], 0x0009)
		hdr[0x2A] = 16
	}
	binary.LittleEndian.PutUint32(hdr[0x2C:], w.ymClock)
	binary.LittleEndian.PutUint32(hdr[0x34:], headerSize-0x34)

	var n int64
	for _, chunk := range [][]byte{hdr[:], body, {0x66}} {
		m, err := out.Write(chunk)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("vgm: write: %w", err)
		}
	}
	return n, nil
}

// Save writes the file to path, gzip-compressed when compress is set.
func (w *Writer) Save(path string, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vgm: %w", err)
	}
	defer f.Close()

	if !compress {
		if _, err := w.WriteTo(f); err != nil {
			return err
		}
		return f.Close()
	}

	gz := gzip.NewWriter(f)
	if _, err := w.WriteTo(gz); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("vgm: compress: %w", err)
	}
	return f.Close()
}
