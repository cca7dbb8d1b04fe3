// integer.go - integer arithmetic, logical, shift and rotate families.
//
// License: GPLv3 or later

package espresso

// updateIntCR0 mirrors interpreter_integer.cpp's CR0 update:
// zero/negative/positive plus a carried-over summary overflow bit.
func updateIntCR0(c *Core, value uint32) {
	var flags uint32
	switch {
	case value == 0:
		flags |= uint32(CREqual)
	case value&0x80000000 != 0:
		flags |= uint32(CRLessThan)
	default:
		flags |= uint32(CRGreaterThan)
	}
	if c.XER.SO() {
		flags |= uint32(CRSummaryOverflow)
	}
	c.CR.SetField(0, flags)
}

func updateIntCarry(c *Core, carry bool) { c.XER.SetCA(carry) }

func updateIntOverflow(c *Core, overflow bool) {
	c.XER.SetOV(overflow)
	if overflow {
		c.XER.SetSO(true)
	}
}

// Add family flags, matching AddFlags in interpreter_integer.cpp.
type addFlags uint32

const (
	addCarry        addFlags = 1 << 0
	addExtended     addFlags = 1 << 1
	addImmediate    addFlags = 1 << 2
	addCheckRecord  addFlags = 1 << 3
	addAlwaysRecord addFlags = 1 << 4
	addShifted      addFlags = 1 << 5
	addToZero       addFlags = 1 << 6
	addToMinusOne   addFlags = 1 << 7
	addZeroRA       addFlags = 1 << 8
	addSubtract     addFlags = 1 << 9
)

func addGeneric(c *Core, in Instruction, flags addFlags) {
	var a, b, d uint32

	if flags&addZeroRA != 0 {
		if in.RA == 0 {
			a = 0
		} else {
			a = c.GPR[in.RA]
		}
	} else {
		a = c.GPR[in.RA]
	}

	if flags&addSubtract != 0 {
		a = ^a
	}

	switch {
	case flags&addImmediate != 0:
		b = uint32(in.SIMM)
	case flags&addToZero != 0:
		b = 0
	case flags&addToMinusOne != 0:
		b = 0xFFFFFFFF
	default:
		b = c.GPR[in.RB]
	}

	if flags&addShifted != 0 {
		b <<= 16
	}

	d = a + b

	if flags&addExtended != 0 {
		if c.XER.CA() {
			d++
		}
	} else if flags&addSubtract != 0 {
		d++
	}

	c.GPR[in.RD] = d

	if flags&addCarry != 0 {
		carry := d < a || (d == a && b > 0)
		updateIntCarry(c, carry)
	}

	if flags&addAlwaysRecord != 0 {
		updateIntCR0(c, d)
	} else if flags&addCheckRecord != 0 {
		if in.OE {
			overflow := (a^d)&(b^d)&0x80000000 != 0
			updateIntOverflow(c, overflow)
		}
		if in.RcBit {
			updateIntCR0(c, d)
		}
	}
}

func execAdd(c *Core, in Instruction)       { addGeneric(c, in, addCheckRecord) }
func execAddc(c *Core, in Instruction)      { addGeneric(c, in, addCarry|addCheckRecord) }
func execAdde(c *Core, in Instruction)      { addGeneric(c, in, addExtended|addCarry|addCheckRecord) }
func execAddi(c *Core, in Instruction)      { addGeneric(c, in, addImmediate|addZeroRA) }
func execAddic(c *Core, in Instruction)     { addGeneric(c, in, addImmediate|addCarry) }
func execAddicDot(c *Core, in Instruction)  { addGeneric(c, in, addImmediate|addCarry|addAlwaysRecord) }
func execAddis(c *Core, in Instruction)     { addGeneric(c, in, addImmediate|addShifted|addZeroRA) }
func execAddme(c *Core, in Instruction) {
	addGeneric(c, in, addCheckRecord|addCarry|addExtended|addToMinusOne)
}
func execAddze(c *Core, in Instruction) {
	addGeneric(c, in, addCheckRecord|addCarry|addExtended|addToZero)
}

func execSubf(c *Core, in Instruction)   { addGeneric(c, in, addSubtract|addCheckRecord) }
func execSubfc(c *Core, in Instruction)  { addGeneric(c, in, addCarry|addSubtract|addCheckRecord) }
func execSubfe(c *Core, in Instruction) {
	addGeneric(c, in, addExtended|addCarry|addSubtract|addCheckRecord)
}
func execSubfic(c *Core, in Instruction) { addGeneric(c, in, addImmediate|addCarry|addSubtract) }
func execSubfme(c *Core, in Instruction) {
	addGeneric(c, in, addToMinusOne|addExtended|addCarry|addCheckRecord|addSubtract)
}
func execSubfze(c *Core, in Instruction) {
	addGeneric(c, in, addToZero|addExtended|addCarry|addCheckRecord|addSubtract)
}

// Logical (AND/OR/XOR) family flags.
type logicalFlags uint32

const (
	logComplement  logicalFlags = 1 << 0
	logCheckRecord logicalFlags = 1 << 1
	logImmediate   logicalFlags = 1 << 2
	logShifted     logicalFlags = 1 << 3
	logAlwaysRecord logicalFlags = 1 << 4
)

type logicalOp int

const (
	logAnd logicalOp = iota
	logOr
	logXor
)

func logicalGeneric(c *Core, in Instruction, op logicalOp, flags logicalFlags) {
	s := c.GPR[in.RS]

	var b uint32
	if flags&logImmediate != 0 {
		b = in.UIMM
	} else {
		b = c.GPR[in.RB]
	}

	if flags&logShifted != 0 {
		b <<= 16
	}
	if flags&logComplement != 0 {
		b = ^b
	}

	var a uint32
	switch op {
	case logAnd:
		a = s & b
	case logOr:
		a = s | b
	case logXor:
		a = s ^ b
	}

	c.GPR[in.RA] = a

	if flags&logAlwaysRecord != 0 {
		updateIntCR0(c, a)
	} else if flags&logCheckRecord != 0 && in.RcBit {
		updateIntCR0(c, a)
	}
}

func execAnd(c *Core, in Instruction)  { logicalGeneric(c, in, logAnd, logCheckRecord) }
func execAndc(c *Core, in Instruction) { logicalGeneric(c, in, logAnd, logCheckRecord|logComplement) }
func execAndiDot(c *Core, in Instruction) {
	logicalGeneric(c, in, logAnd, logAlwaysRecord|logImmediate)
}
func execAndisDot(c *Core, in Instruction) {
	logicalGeneric(c, in, logAnd, logAlwaysRecord|logImmediate|logShifted)
}

func execOr(c *Core, in Instruction)  { logicalGeneric(c, in, logOr, logCheckRecord) }
func execOrc(c *Core, in Instruction) { logicalGeneric(c, in, logOr, logCheckRecord|logComplement) }

// ori/oris never check Rc (there is no Rc field in their encoding) and
// never update CR0 even though they share the logical family's shape
// with andi./andis., which always update CR0. Documented invariant,
// not an oversight.
func execOri(c *Core, in Instruction)  { logicalGeneric(c, in, logOr, logImmediate) }
func execOris(c *Core, in Instruction) { logicalGeneric(c, in, logOr, logImmediate|logShifted) }

func execXor(c *Core, in Instruction)  { logicalGeneric(c, in, logXor, logCheckRecord) }
func execXori(c *Core, in Instruction) { logicalGeneric(c, in, logXor, logImmediate) }
func execXoris(c *Core, in Instruction) {
	logicalGeneric(c, in, logXor, logImmediate|logShifted)
}

func execNand(c *Core, in Instruction) {
	a := ^(c.GPR[in.RS] & c.GPR[in.RB])
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execNor(c *Core, in Instruction) {
	a := ^(c.GPR[in.RS] | c.GPR[in.RB])
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execEqv(c *Core, in Instruction) {
	a := ^(c.GPR[in.RS] ^ c.GPR[in.RB])
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execExtsb(c *Core, in Instruction) {
	a := uint32(int32(int8(c.GPR[in.RS])))
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execExtsh(c *Core, in Instruction) {
	a := uint32(int32(int16(c.GPR[in.RS])))
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execCntlzw(c *Core, in Instruction) {
	s := c.GPR[in.RS]
	var a uint32
	if s == 0 {
		a = 32
	} else {
		n := uint32(0)
		for s&0x80000000 == 0 {
			s <<= 1
			n++
		}
		a = n
	}
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

// Divide. INT_MIN / -1 and divide-by-zero both produce the documented
// saturated result (-1 for a negative dividend, 0 otherwise) rather
// than trapping, matching divGeneric in interpreter_integer.cpp.
func execDivw(c *Core, in Instruction) {
	a := int32(c.GPR[in.RA])
	b := int32(c.GPR[in.RB])
	overflow := b == 0 || (a == -0x80000000 && b == -1)
	var d int32
	if !overflow {
		d = a / b
	} else if a < 0 {
		d = -1
	} else {
		d = 0
	}
	c.GPR[in.RD] = uint32(d)
	if in.OE {
		updateIntOverflow(c, overflow)
	}
	if in.RcBit {
		updateIntCR0(c, uint32(d))
	}
}

func execDivwu(c *Core, in Instruction) {
	a := c.GPR[in.RA]
	b := c.GPR[in.RB]
	overflow := b == 0
	var d uint32
	if !overflow {
		d = a / b
	}
	c.GPR[in.RD] = d
	if in.OE {
		updateIntOverflow(c, overflow)
	}
	if in.RcBit {
		updateIntCR0(c, d)
	}
}

// Multiply. mulhw/mulhwu never check overflow regardless of OE: an
// explicit quirk in the original, not merely "take the high bits."
func execMulhw(c *Core, in Instruction) {
	a := int64(int32(c.GPR[in.RA]))
	b := int64(int32(c.GPR[in.RB]))
	d := uint32((a * b) >> 32)
	c.GPR[in.RD] = d
	if in.RcBit {
		updateIntCR0(c, d)
	}
}

func execMulhwu(c *Core, in Instruction) {
	a := uint64(c.GPR[in.RA])
	b := uint64(c.GPR[in.RB])
	d := uint32((a * b) >> 32)
	c.GPR[in.RD] = d
	if in.RcBit {
		updateIntCR0(c, d)
	}
}

func execMulli(c *Core, in Instruction) {
	a := int64(int32(c.GPR[in.RA]))
	b := int64(in.SIMM)
	d := uint32(int32(a * b))
	c.GPR[in.RD] = d
}

func execMullw(c *Core, in Instruction) {
	a := int64(int32(c.GPR[in.RA]))
	b := int64(int32(c.GPR[in.RB]))
	product := a * b
	d := uint32(int32(product))
	c.GPR[in.RD] = d
	if in.OE {
		overflow := product < -0x80000000 || product > 0x7FFFFFFF
		updateIntOverflow(c, overflow)
	}
	if in.RcBit {
		updateIntCR0(c, d)
	}
}

func execNeg(c *Core, in Instruction) {
	a := c.GPR[in.RA]
	d := (^a) + 1
	c.GPR[in.RD] = d
	overflow := a == 0x80000000
	if in.OE {
		updateIntOverflow(c, overflow)
	}
	if in.RcBit {
		updateIntCR0(c, d)
	}
}

// Rotate left word, generalized over rlwimi/rlwinm/rlwnm.
type rlwFlags uint32

const (
	rlwImmediate rlwFlags = 1 << 0
	rlwAnd       rlwFlags = 1 << 1
	rlwInsert    rlwFlags = 1 << 2
)

func rotl32(x, n uint32) uint32 {
	n &= 31
	return (x << n) | (x >> (32 - n))
}

func rlwGeneric(c *Core, in Instruction, flags rlwFlags) {
	s := c.GPR[in.RS]
	a := c.GPR[in.RA]

	var n uint32
	if flags&rlwImmediate != 0 {
		n = in.SH
	} else {
		n = c.GPR[in.RB] & 0x1F
	}

	r := rotl32(s, n)
	m := bitmask32(in.MB, in.ME)

	switch {
	case flags&rlwAnd != 0:
		a = r & m
	case flags&rlwInsert != 0:
		a = (r & m) | (a &^ m)
	}

	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execRlwimi(c *Core, in Instruction) { rlwGeneric(c, in, rlwImmediate|rlwInsert) }
func execRlwinm(c *Core, in Instruction) { rlwGeneric(c, in, rlwImmediate|rlwAnd) }
func execRlwnm(c *Core, in Instruction)  { rlwGeneric(c, in, rlwAnd) }

// Shift logical (slw/srw), generalized over direction.
func execSlw(c *Core, in Instruction) {
	s := c.GPR[in.RS]
	b := c.GPR[in.RB]
	n := b & 0x1F
	var a uint32
	if b&0x20 == 0 {
		a = s << n
	}
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

func execSrw(c *Core, in Instruction) {
	s := c.GPR[in.RS]
	b := c.GPR[in.RB]
	n := b & 0x1F
	var a uint32
	if b&0x20 == 0 {
		a = s >> n
	}
	c.GPR[in.RA] = a
	if in.RcBit {
		updateIntCR0(c, a)
	}
}

// Shift arithmetic right (sraw/srawi) sets XER.CA when any 1 bits are
// shifted out of a negative operand.
func shiftArithmetic(c *Core, in Instruction, amount uint32) {
	s := int32(c.GPR[in.RS])
	var a int32
	carry := false

	if amount&0x20 != 0 {
		if s >= 0 {
			a = 0
		} else {
			a = -1
			carry = true
		}
	} else {
		n := amount & 0x1F
		if n == 0 {
			a = s
		} else {
			a = s >> n
			if s < 0 && (uint32(s)<<(32-n)) != 0 {
				carry = true
			}
		}
	}

	c.GPR[in.RA] = uint32(a)
	updateIntCarry(c, carry)
	if in.RcBit {
		updateIntCR0(c, uint32(a))
	}
}

func execSraw(c *Core, in Instruction)  { shiftArithmetic(c, in, c.GPR[in.RB]) }
func execSrawi(c *Core, in Instruction) { shiftArithmetic(c, in, in.SH) }

func registerIntegerInstructions() {
	registerHandler(InsAdd, execAdd)
	registerHandler(InsAddc, execAddc)
	registerHandler(InsAdde, execAdde)
	registerHandler(InsAddi, execAddi)
	registerHandler(InsAddic, execAddic)
	registerHandler(InsAddicDot, execAddicDot)
	registerHandler(InsAddis, execAddis)
	registerHandler(InsAddme, execAddme)
	registerHandler(InsAddze, execAddze)
	registerHandler(InsAnd, execAnd)
	registerHandler(InsAndc, execAndc)
	registerHandler(InsAndiDot, execAndiDot)
	registerHandler(InsAndisDot, execAndisDot)
	registerHandler(InsCntlzw, execCntlzw)
	registerHandler(InsDivw, execDivw)
	registerHandler(InsDivwu, execDivwu)
	registerHandler(InsEqv, execEqv)
	registerHandler(InsExtsb, execExtsb)
	registerHandler(InsExtsh, execExtsh)
	registerHandler(InsMulhw, execMulhw)
	registerHandler(InsMulhwu, execMulhwu)
	registerHandler(InsMulli, execMulli)
	registerHandler(InsMullw, execMullw)
	registerHandler(InsNand, execNand)
	registerHandler(InsNeg, execNeg)
	registerHandler(InsNor, execNor)
	registerHandler(InsOr, execOr)
	registerHandler(InsOrc, execOrc)
	registerHandler(InsOri, execOri)
	registerHandler(InsOris, execOris)
	registerHandler(InsRlwimi, execRlwimi)
	registerHandler(InsRlwinm, execRlwinm)
	registerHandler(InsRlwnm, execRlwnm)
	registerHandler(InsSlw, execSlw)
	registerHandler(InsSraw, execSraw)
	registerHandler(InsSrawi, execSrawi)
	registerHandler(InsSrw, execSrw)
	registerHandler(InsSubf, execSubf)
	registerHandler(InsSubfc, execSubfc)
	registerHandler(InsSubfe, execSubfe)
	registerHandler(InsSubfic, execSubfic)
	registerHandler(InsSubfme, execSubfme)
	registerHandler(InsSubfze, execSubfze)
	registerHandler(InsXor, execXor)
	registerHandler(InsXori, execXori)
	registerHandler(InsXoris, execXoris)
}
