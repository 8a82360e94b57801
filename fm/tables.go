package fm

// Fixed chip-family constants shared by every FM backend.
const (
	// NumOperators is the operator count of one FM channel.
	NumOperators = 4

	// NumAlgorithms is the number of operator routing topologies.
	NumAlgorithms = 8

	// HardResetCycles is the key-on window (in ticks) during which a hard
	// reset may still be issued.
	HardResetCycles = 127
)

// outputRouting marks which operators are audible outputs for each
// algorithm. Columns are in register order: S1, S3, S2, S4.
var outputRouting = [NumAlgorithms][NumOperators]bool{
	{false, false, false, true},
	{false, false, false, true},
	{false, false, false, true},
	{false, false, false, true},
	{false, false, true, true},
	{false, true, true, true},
	{false, true, true, true},
	{true, true, true, true},
}

// operatorOrder maps a logical operator (OP1..OP4) to its physical register
// slot. The chip interleaves operator pairs, so OP2 and OP3 trade places.
var operatorOrder = [NumOperators]int{0, 2, 1, 3}

// detuneTable maps a detune index to the value the hardware expects.
var detuneTable = [8]uint8{7, 6, 5, 0, 1, 2, 3, 4}

// IsOutput reports whether operator op is an audible output in algorithm alg.
func IsOutput(alg, op int) (bool, error) {
	if alg < 0 || alg >= NumAlgorithms {
		return false, ErrAlgorithmRange
	}
	if op < 0 || op >= NumOperators {
		return false, ErrOperatorRange
	}
	return outputRouting[alg][op], nil
}

// PhysicalOperator returns the register slot for logical operator op.
func PhysicalOperator(op int) (int, error) {
	if op < 0 || op >= NumOperators {
		return 0, ErrOperatorRange
	}
	return operatorOrder[op], nil
}

// LogicalOperator is the inverse of PhysicalOperator.
func LogicalOperator(slot int) (int, error) {
	if slot < 0 || slot >= NumOperators {
		return 0, ErrOperatorRange
	}
	for op, s := range operatorOrder {
		if s == slot {
			return op, nil
		}
	}
	return 0, ErrOperatorRange
}

// Detune remaps a detune index (0-7) to hardware order. Indices outside the
// table are clamped.
func Detune(dt int) uint8 {
	if dt < 0 {
		dt = 0
	}
	if dt >= len(detuneTable) {
		dt = len(detuneTable) - 1
	}
	return detuneTable[dt]
}
