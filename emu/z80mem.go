package emu

import "github.com/user-none/go-chip-z80"

// Z80Memory implements z80.Bus for the sound CPU address space.
//
// Sound Z80 memory map (16-bit):
//
//	0x0000-0x1FFF  Z80 RAM (8KB)
//	0x2000-0x3FFF  Z80 RAM mirror
//	0x4000-0x5FFF  YM2612 ports
//	0x7F10-0x7F17  PSG write port
//	elsewhere      Unmapped (reads return 0xFF)
type Z80Memory struct {
	board *SoundBoard
	ram   [0x2000]uint8
}

// NewZ80Memory creates a Z80Memory connected to the given sound board.
func NewZ80Memory(board *SoundBoard) *Z80Memory {
	return &Z80Memory{board: board}
}

// Fetch reads an opcode byte during an M1 cycle. There is no M1-specific
// behavior, so this delegates to Read.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

// Read reads a byte from the sound Z80 address space.
func (m *Z80Memory) Read(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return m.ram[addr&0x1FFF]
	case addr < 0x6000:
		return m.board.ReadPort(uint8((addr - 0x4000) & 0x03))
	default:
		return 0xFF
	}
}

// Write writes a byte to the sound Z80 address space.
func (m *Z80Memory) Write(addr uint16, val uint8) {
	switch {
	case addr < 0x4000:
		m.ram[addr&0x1FFF] = val
	case addr < 0x6000:
		m.board.WritePort(uint8((addr-0x4000)&0x03), val)
	case addr >= 0x7F10 && addr < 0x7F18:
		m.board.WritePSG(val)
	}
}

// In reads from an I/O port. All peripherals are memory-mapped.
func (m *Z80Memory) In(port uint16) uint8 {
	return 0xFF
}

// Out writes to an I/O port. No-op.
func (m *Z80Memory) Out(port uint16, val uint8) {}

// Driver program layout in Z80 RAM.
const (
	programLimit = 0x1F00 // code must end below the scratch area
	scratchAddr  = 0x1FF0 // port reads land here
	psgAddr      = 0x7F11
	storeLen     = 5 // LD A,n ; LD (nn),A
	tailLen      = 2 // JR $
)

// Z80Driver delivers chip writes the way a sound driver does: as stores
// executed by the sound Z80. Writes are assembled into a program in Z80
// RAM and run on demand, so their cost is counted in real T-states.
//
// Z80Driver satisfies the same port interface as the sound board and can
// sit between a backend and the board.
type Z80Driver struct {
	mem    *Z80Memory
	cpu    *z80.CPU
	code   []uint8
	cycles uint64
}

// NewZ80Driver creates a driver whose Z80 is wired to board.
func NewZ80Driver(board *SoundBoard) *Z80Driver {
	mem := NewZ80Memory(board)
	return &Z80Driver{
		mem:  mem,
		cpu:  z80.New(mem),
		code: make([]uint8, 0, programLimit),
	}
}

// WritePort assembles a store to YM2612 port 0-3.
func (d *Z80Driver) WritePort(port uint8, val uint8) {
	d.emitStore(0x4000+uint16(port&0x03), val)
}

// WritePSG assembles a store to the PSG.
func (d *Z80Driver) WritePSG(val uint8) {
	d.emitStore(psgAddr, val)
}

// ReadPort runs any pending stores, then reads a YM2612 port through the
// CPU.
func (d *Z80Driver) ReadPort(port uint8) uint8 {
	d.Run()
	addr := 0x4000 + uint16(port&0x03)
	d.code = append(d.code,
		0x3A, uint8(addr), uint8(addr>>8), // LD A,(nn)
		0x32, uint8(scratchAddr&0xFF), uint8(scratchAddr>>8), // LD (nn),A
	)
	d.Run()
	return d.mem.ram[scratchAddr]
}

func (d *Z80Driver) emitStore(addr uint16, val uint8) {
	if len(d.code)+storeLen+tailLen > programLimit {
		d.Run()
	}
	d.code = append(d.code,
		0x3E, val, // LD A,n
		0x32, uint8(addr), uint8(addr>>8), // LD (nn),A
	)
}

// Pending returns the size in bytes of the program not yet run.
func (d *Z80Driver) Pending() int {
	return len(d.code)
}

// Run executes the assembled program from address 0 and returns the
// T-states it took. The program ends in a JR $ loop; execution stops when
// the CPU reaches it.
func (d *Z80Driver) Run() int {
	if len(d.code) == 0 {
		return 0
	}
	end := uint16(len(d.code))
	d.code = append(d.code, 0x18, 0xFE) // JR $
	copy(d.mem.ram[:], d.code)
	d.code = d.code[:0]

	d.cpu.Reset()
	total := 0
	// Every instruction is at least one byte, so this bounds a bad program
	for steps := 0; steps <= int(end) && d.cpu.Registers().PC != end; steps++ {
		total += d.cpu.Step()
	}
	d.cycles += uint64(total)
	return total
}

// Cycles returns the T-states spent since creation.
func (d *Z80Driver) Cycles() uint64 {
	return d.cycles
}
