package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrInvalidHeader reports data that is not a VGM file.
	ErrInvalidHeader = errors.New("vgm: invalid header")

	// ErrTruncated reports a command cut short by the end of the data.
	ErrTruncated = errors.New("vgm: truncated data")
)

// Chip identifies the target of a parsed write.
type Chip uint8

const (
	ChipYM2612 Chip = iota
	ChipSN76489
)

// Command is one chip write with its position in the stream.
type Command struct {
	Sample uint64
	Chip   Chip
	Addr   uint16 // YM2612 register, bit 8 selects port 1
	Val    uint8
}

// File is a parsed VGM stream.
type File struct {
	Version      uint32
	SNClockHz    uint32
	YMClockHz    uint32
	Rate         uint32
	TotalSamples uint64
	Commands     []Command
}

// ParseFile reads and parses a .vgm or .vgz file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vgm: %w", err)
	}
	return Parse(data)
}

// Parse decodes a VGM stream. Gzip-compressed input is detected by its
// magic bytes.
func Parse(data []byte) (*File, error) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("vgm: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("vgm: %w", err)
		}
	}
	if len(data) < headerSize || !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return nil, ErrInvalidHeader
	}

	f := &File{
		Version:      binary.LittleEndian.Uint32(data[0x08:]),
		SNClockHz:    binary.LittleEndian.Uint32(data[0x0C:]),
		TotalSamples: uint64(binary.LittleEndian.Uint32(data[0x18:])),
		Rate:         binary.LittleEndian.Uint32(data[0x24:]),
		YMClockHz:    binary.LittleEndian.Uint32(data[0x2C:]),
	}

	dataStart := 0x40
	if off := binary.LittleEndian.Uint32(data[0x34:]); f.Version >= version150 && off != 0 {
		dataStart = 0x34 + int(off)
	}
	if dataStart > len(data) {
		return nil, fmt.Errorf("vgm: data offset %d beyond end: %w", dataStart, ErrTruncated)
	}

	var sample uint64
	need := func(i, n int) error {
		if i+n > len(data) {
			return fmt.Errorf("vgm: command 0x%02X at offset %d: %w", data[i], i, ErrTruncated)
		}
		return nil
	}
	for i := dataStart; i < len(data); {
		cmd := data[i]
		switch {
		case cmd == 0x66:
			return f, nil
		case cmd == 0x50:
			if err := need(i, 2); err != nil {
				return nil, err
			}
			f.Commands = append(f.Commands, Command{Sample: sample, Chip: ChipSN76489, Val: data[i+1]})
			i += 2
		case cmd == 0x52 || cmd == 0x53:
			if err := need(i, 3); err != nil {
				return nil, err
			}
			addr := uint16(data[i+1])
			if cmd == 0x53 {
				addr |= 0x100
			}
			f.Commands = append(f.Commands, Command{Sample: sample, Chip: ChipYM2612, Addr: addr, Val: data[i+2]})
			i += 3
		case cmd == 0x61:
			if err := need(i, 3); err != nil {
				return nil, err
			}
			sample += uint64(binary.LittleEndian.Uint16(data[i+1:]))
			i += 3
		case cmd == 0x62:
			sample += 735
			i++
		case cmd == 0x63:
			sample += 882
			i++
		case cmd >= 0x70 && cmd <= 0x7F:
			sample += uint64(cmd&0x0F) + 1
			i++
		case cmd >= 0x80 && cmd <= 0x8F:
			// DAC write from the data bank; the bank itself is not kept
			sample += uint64(cmd & 0x0F)
			i++
		case cmd == 0x67:
			if err := need(i, 7); err != nil {
				return nil, err
			}
			i += 7 + int(binary.LittleEndian.Uint32(data[i+3:]))
		default:
			return nil, fmt.Errorf("vgm: unsupported command 0x%02X at offset %d", cmd, i)
		}
	}
	return f, nil
}
