package javabin

import "encoding/binary"

// JVM opcodes relevant to decision-point counting: conditional jumps and
// the two switch forms. See the JVM spec chapter 6 opcode table.
const (
	opIfeq       = 0x99
	opIfLe       = 0x9E // contiguous block 0x99-0x9E: if<cond>
	opIfIcmpeq   = 0x9F
	opIfIcmpLe   = 0xA4 // contiguous block 0x9F-0xA4: if_icmp<cond> (0x9F..0xA4)
	opIfnull     = 0xC6
	opIfnonnull  = 0xC7
	opTableswitch = 0xAA
	opLookupswitch = 0xAB
	opWide       = 0xC4
	opGoto       = 0xA7
	opGotoW      = 0xC8
	opJsr        = 0xA8
	opJsrW       = 0xC9
)

// opcodeOperandSize gives the number of bytes following the opcode for
// fixed-width instructions (excluding tableswitch/lookupswitch/wide, which
// are handled specially). Instructions not listed have zero operand bytes.
var opcodeOperandSize = buildOperandSizeTable()

// countCodeDecisionPoints walks a Code attribute's instruction stream and
// counts conditional jumps and switch tables, the definition of "decision
// point" used for cyclomatic complexity (§4.B).
func countCodeDecisionPoints(code []byte) int {
	if len(code) < 8 {
		return 0
	}

	codeLength := binary.BigEndian.Uint32(code[4:8])
	start := 8

	end := start + int(codeLength)
	if end > len(code) {
		end = len(code)
	}

	instructions := code[start:end]

	count := 0
	i := 0

	for i < len(instructions) {
		op := instructions[i]

		switch {
		case isConditionalJump(op):
			count++
			i += 3
		case op == opTableswitch:
			consumed := scanTableswitch(instructions, i)
			count++
			i += consumed
		case op == opLookupswitch:
			consumed := scanLookupswitch(instructions, i)
			count++
			i += consumed
		case op == opWide:
			i += wideSize(instructions, i)
		default:
			i += 1 + opcodeOperandSize[op]
		}
	}

	return count
}

func isConditionalJump(op byte) bool {
	switch {
	case op >= 0x99 && op <= 0xA6: // ifeq..if_acmpne
		return true
	case op == opIfnull || op == opIfnonnull:
		return true
	default:
		return false
	}
}

// scanTableswitch returns the total byte length (including the opcode) of
// a tableswitch instruction starting at offset off within instructions.
func scanTableswitch(instructions []byte, off int) int {
	pos := off + 1
	for pos%4 != 0 {
		pos++
	}

	if pos+12 > len(instructions) {
		return len(instructions) - off
	}

	low := int32(binary.BigEndian.Uint32(instructions[pos+4 : pos+8]))
	high := int32(binary.BigEndian.Uint32(instructions[pos+8 : pos+12]))
	numEntries := 0

	if high >= low {
		numEntries = int(high-low) + 1
	}

	pos += 12 + numEntries*4

	return pos - off
}

// scanLookupswitch returns the total byte length (including the opcode) of
// a lookupswitch instruction starting at offset off.
func scanLookupswitch(instructions []byte, off int) int {
	pos := off + 1
	for pos%4 != 0 {
		pos++
	}

	if pos+8 > len(instructions) {
		return len(instructions) - off
	}

	npairs := int(binary.BigEndian.Uint32(instructions[pos+4 : pos+8]))
	pos += 8 + npairs*8

	return pos - off
}

// wideSize returns the instruction length of a `wide` prefixed instruction.
func wideSize(instructions []byte, off int) int {
	if off+1 >= len(instructions) {
		return len(instructions) - off
	}

	// wide iinc has an extra 2-byte constant; all other wide forms have a
	// 2-byte local index only.
	const iinc = 0x84
	if instructions[off+1] == iinc {
		return 6
	}

	return 4
}

// buildOperandSizeTable enumerates the fixed operand-byte counts for the
// JVM's non-variable-length instructions, derived from the spec's opcode
// table. Opcodes not set here (and not a conditional jump, switch, or
// wide) default to zero.
func buildOperandSizeTable() [256]int {
	var t [256]int

	oneByteArgs := []byte{0x10, 0x12, 0x15, 0x16, 0x17, 0x18, 0x19, 0x36, 0x37, 0x38, 0x39, 0x3a, 0xa9, 0xbc}
	for _, op := range oneByteArgs {
		t[op] = 1
	}

	twoByteArgs := []byte{
		0x11, 0x13, 0x14, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xbb, 0xbd, 0xc0, 0xc1,
		opGoto, opJsr, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e,
	}
	for _, op := range twoByteArgs {
		t[op] = 2
	}

	for op := byte(0x99); op <= 0xa6; op++ {
		t[op] = 2
	}

	t[opIfnull] = 2
	t[opIfnonnull] = 2

	fourByteArgs := []byte{opGotoW, opJsrW, 0xb9, 0xc8, 0xc9}
	for _, op := range fourByteArgs {
		t[op] = 4
	}

	t[0xb9] = 4 // invokeinterface: methodref(2) + count(1) + 0(1)
	t[0xba] = 4 // invokedynamic: indexbyte1,2 + 0,0

	t[0x84] = 2 // iinc: index(1) + const(1)
	t[0xc5] = 3 // multianewarray: type(2) + dims(1)

	return t
}
