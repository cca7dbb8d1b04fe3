// pairedarith.go - the paired-single SIMD instruction family: per-lane
// register moves, arithmetic, fused multiply-add, merges, reciprocal
// estimates and select.
//
// License: GPLv3 or later

package espresso

import "math"

type moveMode int

const (
	moveDirect moveMode = iota
	moveNegate
	moveAbsolute
	moveNegAbsolute
)

// moveGeneric implements ps_mr/ps_neg/ps_abs/ps_nabs: both lanes are
// narrowed to single precision (ps0 rounds if it has excess precision,
// ps1 always truncates), the sign-bit operation is applied, and a
// signaling-NaN lane is widened back manually to preserve its payload
// instead of going through a narrow/widen pair that could quiet it.
func moveGeneric(c *Core, in Instruction, mode moveMode) {
	ps0 := c.FPR[in.RB].Paired0()
	ps1 := c.FPR[in.RB].Paired1()
	ps0NaN := isSignalingNaN64(ps0)
	ps1NaN := isSignalingNaN64(ps1)

	var b0, b1 uint32
	if ps0NaN {
		b0 = truncateDoubleBits(c.FPR[in.RB].IDW())
	} else {
		b0 = Float32Bits(float32(ps0))
	}
	b1 = Float32Bits(truncateDouble(ps1))

	var d0, d1 uint32
	switch mode {
	case moveDirect:
		d0, d1 = b0, b1
	case moveNegate:
		d0, d1 = b0^0x80000000, b1^0x80000000
	case moveAbsolute:
		d0, d1 = b0&^0x80000000, b1&^0x80000000
	case moveNegAbsolute:
		d0, d1 = b0|0x80000000, b1|0x80000000
	}

	if !ps0NaN {
		c.FPR[in.RD].SetPaired0(float64(Float32FromBits(d0)))
	} else {
		c.FPR[in.RD].SetIW0(d0)
	}
	if !ps1NaN {
		c.FPR[in.RD].SetPaired1(float64(Float32FromBits(d1)))
	} else {
		c.FPR[in.RD].SetIW1(d1)
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsMr(c *Core, in Instruction)   { moveGeneric(c, in, moveDirect) }
func execPsNeg(c *Core, in Instruction)  { moveGeneric(c, in, moveNegate) }
func execPsAbs(c *Core, in Instruction)  { moveGeneric(c, in, moveAbsolute) }
func execPsNabs(c *Core, in Instruction) { moveGeneric(c, in, moveNegAbsolute) }

// Note: extendFloatNaNBits widens a 32-bit pattern into the full
// 64-bit double layout; a paired register's ps0 lives in the upper
// 32 bits of the 64-bit word (IW0) and ps1 in the lower 32 (IW1), so
// ps0's raw NaN word is the high half of the widened 64-bit pattern
// and ps1's is the low half directly.

// psArithSingle computes one lane of ps_add/ps_sub/ps_mul/ps_div,
// returning the lane result and whether it was actually written (a
// disabled invalid-operation or zero-divide exception aborts the
// write but still records the sticky FPSCR bits).
func psArithSingle(c *Core, op fpArithOp, a, b float64) (float32, bool) {
	vxsnan := isSignalingNaN64(a) || isSignalingNaN64(b)
	var vxisi, vximz, vxidi, vxzdz, zx bool

	switch op {
	case fpAdd:
		vxisi = isInfinity64(a) && isInfinity64(b) && signbit64(a) != signbit64(b)
	case fpSub:
		vxisi = isInfinity64(a) && isInfinity64(b) && signbit64(a) == signbit64(b)
	case fpMul:
		vximz = (isInfinity64(a) && isZero64(b)) || (isZero64(a) && isInfinity64(b))
	case fpDiv:
		vxidi = isInfinity64(a) && isInfinity64(b)
		vxzdz = isZero64(a) && isZero64(b)
		zx = !(vxzdz || vxsnan) && isZero64(b)
	}

	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.OrVXISI(vxisi)
	c.FPSCR.OrVXIMZ(vximz)
	c.FPSCR.OrVXIDI(vxidi)
	c.FPSCR.OrVXZDZ(vxzdz)
	c.FPSCR.OrZX(zx)

	if (vxsnan || vxisi || vximz || vxidi || vxzdz) && c.FPSCR.VE() {
		return 0, false
	}
	if zx && c.FPSCR.ZE() {
		return 0, false
	}

	var d float32
	switch {
	case isNaN64(a):
		d = makeQuiet32(truncateDouble(a))
	case isNaN64(b):
		d = makeQuiet32(truncateDouble(b))
	case vxisi || vximz || vxidi || vxzdz:
		d = Float32FromBits(0x7FC00000)
	default:
		if op == fpMul {
			a, b = roundForMultiply(a, b)
		}
		switch op {
		case fpAdd:
			d = float32(a + b)
		case fpSub:
			d = float32(a - b)
		case fpMul:
			d = float32(a * b)
		case fpDiv:
			d = float32(a / b)
		}
	}

	return d, true
}

func psLane(c *Core, reg uint32, slot int) float64 {
	if slot == 0 {
		return c.FPR[reg].Paired0()
	}
	return c.FPR[reg].Paired1()
}

// psArithGeneric implements ps_add/ps_sub/ps_mul/ps_div (and the
// ps_muls0/ps_muls1 single-operand-broadcast forms): each lane is an
// independent psArithSingle, both lanes must succeed for either to be
// written, and only lane 0's result feeds FPRF.
func psArithGeneric(c *Core, in Instruction, op fpArithOp, slotB0, slotB1 int) {
	oldFPSCR := c.FPSCR.Value

	bReg0, bReg1 := in.RB, in.RB
	if op == fpMul {
		bReg0, bReg1 = in.RC, in.RC
	}

	a0 := psLane(c, in.RA, 0)
	b0 := psLane(c, bReg0, slotB0)
	d0, wrote0 := psArithSingle(c, op, a0, b0)

	a1 := psLane(c, in.RA, 1)
	b1 := psLane(c, bReg1, slotB1)
	d1, wrote1 := psArithSingle(c, op, a1, b1)

	if wrote0 && wrote1 {
		c.FPR[in.RD].SetPaired0(extendFloat(d0))
		c.FPR[in.RD].SetPaired1(extendFloat(d1))
	}
	if wrote0 {
		updateFPRF32(c, d0)
	}
	updateFXFEXVX(c, oldFPSCR)

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsAdd(c *Core, in Instruction)   { psArithGeneric(c, in, fpAdd, 0, 1) }
func execPsSub(c *Core, in Instruction)   { psArithGeneric(c, in, fpSub, 0, 1) }
func execPsMul(c *Core, in Instruction)   { psArithGeneric(c, in, fpMul, 0, 1) }
func execPsDiv(c *Core, in Instruction)   { psArithGeneric(c, in, fpDiv, 0, 1) }
func execPsMuls0(c *Core, in Instruction) { psArithGeneric(c, in, fpMul, 0, 0) }
func execPsMuls1(c *Core, in Instruction) { psArithGeneric(c, in, fpMul, 1, 1) }

// psSumGeneric implements ps_sum0/ps_sum1: lane 0 and lane 1 of the
// result both come from frA(ps0)+frB(ps1), placed in the slot the
// mnemonic names; the other slot is copied straight from frC without
// rounding exceptions leaking into FPSCR.
func psSumGeneric(c *Core, in Instruction, slot int) {
	oldFPSCR := c.FPSCR.Value

	sum, wrote := psArithSingle(c, fpAdd, psLane(c, in.RA, 0), psLane(c, in.RB, 1))
	if wrote {
		updateFPRF32(c, sum)
		if slot == 0 {
			c.FPR[in.RD].SetPaired0(extendFloat(sum))
			c.FPR[in.RD].SetIW1(c.FPR[in.RC].IW1())
		} else {
			c0 := c.FPR[in.RC].Paired0()
			var ps0 float32
			if isNaN64(c0) {
				ps0 = truncateDouble(c0)
			} else {
				ps0 = float32(c0)
			}
			c.FPR[in.RD].SetPaired0(extendFloat(ps0))
			c.FPR[in.RD].SetPaired1(extendFloat(sum))
		}
	}

	updateFXFEXVX(c, oldFPSCR)

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsSum0(c *Core, in Instruction) { psSumGeneric(c, in, 0) }
func execPsSum1(c *Core, in Instruction) { psSumGeneric(c, in, 1) }

type psFMAFlags uint32

const (
	psFMASubtract psFMAFlags = 1 << iota
	psFMANegate
)

// psFMASingle computes one lane of the paired multiply-add family.
func psFMASingle(c *Core, flags psFMAFlags, a, b, cc float64) (float32, bool) {
	addend := b
	if flags&psFMASubtract != 0 {
		addend = -b
	}

	vxsnan := isSignalingNaN64(a) || isSignalingNaN64(b) || isSignalingNaN64(cc)
	vximz := (isInfinity64(a) && isZero64(cc)) || (isZero64(a) && isInfinity64(cc))
	vxisi := !vximz && !isNaN64(a) && !isNaN64(cc) &&
		(isInfinity64(a) || isInfinity64(cc)) && isInfinity64(b) &&
		(signbit64(a) != signbit64(cc)) != signbit64(addend)

	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.OrVXISI(vxisi)
	c.FPSCR.OrVXIMZ(vximz)

	if (vxsnan || vxisi || vximz) && c.FPSCR.VE() {
		return 0, false
	}

	var d float32
	switch {
	case isNaN64(a):
		d = makeQuiet32(truncateDouble(a))
	case isNaN64(b):
		d = makeQuiet32(truncateDouble(b))
	case isNaN64(cc):
		d = makeQuiet32(truncateDouble(cc))
	case vxisi || vximz:
		d = Float32FromBits(0x7FC00000)
	default:
		a, cc = roundForMultiply(a, cc)
		d64 := math.FMA(a, cc, addend)
		if c.FPSCR.RN() == RoundNearest {
			d = roundFMAResultToSingle(d64, a, addend, cc)
		} else {
			d = float32(d64)
		}
		if flags&psFMANegate != 0 {
			d = -d
		}
	}

	return d, true
}

// psFMAGeneric implements ps_madd/ps_msub/ps_nmadd/ps_nmsub and the
// ps_madds0/ps_madds1 broadcast-C forms.
func psFMAGeneric(c *Core, in Instruction, flags psFMAFlags, slotC0, slotC1 int) {
	oldFPSCR := c.FPSCR.Value

	d0, wrote0 := psFMASingle(c, flags, psLane(c, in.RA, 0), psLane(c, in.RB, 0), psLane(c, in.RC, slotC0))
	d1, wrote1 := psFMASingle(c, flags, psLane(c, in.RA, 1), psLane(c, in.RB, 1), psLane(c, in.RC, slotC1))

	if wrote0 && wrote1 {
		c.FPR[in.RD].SetPaired0(extendFloat(d0))
		c.FPR[in.RD].SetPaired1(extendFloat(d1))
	}
	if wrote0 {
		updateFPRF32(c, d0)
	}
	updateFXFEXVX(c, oldFPSCR)

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsMadd(c *Core, in Instruction)   { psFMAGeneric(c, in, 0, 0, 1) }
func execPsMadds0(c *Core, in Instruction) { psFMAGeneric(c, in, 0, 0, 0) }
func execPsMadds1(c *Core, in Instruction) { psFMAGeneric(c, in, 0, 1, 1) }
func execPsMsub(c *Core, in Instruction)   { psFMAGeneric(c, in, psFMASubtract, 0, 1) }
func execPsNmadd(c *Core, in Instruction)  { psFMAGeneric(c, in, psFMANegate, 0, 1) }
func execPsNmsub(c *Core, in Instruction) {
	psFMAGeneric(c, in, psFMANegate|psFMASubtract, 0, 1)
}

type mergeFlags uint32

const (
	mergeValue0 mergeFlags = 1 << iota
	mergeValue1
)

// mergeGeneric implements ps_merge00/01/10/11: lane 0 of the result
// comes from either frA's ps0 or ps1 (rounding normally, or truncating
// a signaling NaN to preserve it); lane 1 comes from frB's ps0 or ps1,
// truncated, except that a double-precision value whose exponent
// would overflow single range is clamped to the single maximum rather
// than producing infinity.
func mergeGeneric(c *Core, in Instruction, flags mergeFlags) {
	var aSlot int
	if flags&mergeValue0 != 0 {
		aSlot = 1
	}
	aValue := psLane(c, in.RA, aSlot)

	var d0 float32
	if !isSignalingNaN64(aValue) {
		d0 = float32(aValue)
	} else {
		d0 = truncateDouble(aValue)
	}

	var bSlot int
	if flags&mergeValue1 != 0 {
		bSlot = 1
	}
	bValue := psLane(c, in.RB, bSlot)

	bBits := getFloatBits64(bValue)
	var d1 float32
	if bBits.exponent >= 1151 && bBits.exponent < 2047 {
		d1 = math.MaxFloat32
		if bBits.sign != 0 {
			d1 = -d1
		}
	} else {
		d1 = truncateDouble(bValue)
	}

	c.FPR[in.RD].SetPaired0(extendFloat(d0))
	c.FPR[in.RD].SetPaired1(extendFloat(d1))

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsMerge00(c *Core, in Instruction) { mergeGeneric(c, in, 0) }
func execPsMerge01(c *Core, in Instruction) { mergeGeneric(c, in, mergeValue1) }
func execPsMerge10(c *Core, in Instruction) { mergeGeneric(c, in, mergeValue0) }
func execPsMerge11(c *Core, in Instruction) { mergeGeneric(c, in, mergeValue0|mergeValue1) }

// execPsRes implements the paired reciprocal estimate, per lane.
func execPsRes(c *Core, in Instruction) {
	b0 := c.FPR[in.RB].Paired0()
	b1 := c.FPR[in.RB].Paired1()

	vxsnan0 := isSignalingNaN64(b0)
	vxsnan1 := isSignalingNaN64(b1)
	zx0 := isZero64(b0)
	zx1 := isZero64(b1)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan0 || vxsnan1)
	c.FPSCR.OrZX(zx0 || zx1)

	write := true
	var r0, r1 reciprocalResult
	if (vxsnan0 && c.FPSCR.VE()) || (zx0 && c.FPSCR.ZE()) {
		write = false
	} else {
		r0 = estimateReciprocal(truncateDouble(b0))
		updateFPRF32(c, r0.value)
	}
	if (vxsnan1 && c.FPSCR.VE()) || (zx1 && c.FPSCR.ZE()) {
		write = false
	} else {
		r1 = estimateReciprocal(truncateDouble(b1))
	}

	if write {
		c.FPR[in.RD].SetPaired0(extendFloat(r0.value))
		c.FPR[in.RD].SetPaired1(extendFloat(r1.value))
	}

	if r0.inexact || r1.inexact {
		updateFXFEXVX(c, oldFPSCR)
		c.FPSCR.SetFI(true)
	} else {
		updateFXFEXVX(c, oldFPSCR)
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// execPsRsqrte implements the paired reciprocal-square-root estimate.
// Lane 0 keeps its full double-precision exponent range; lane 1's
// exponent is folded into a narrower window to match the quirky
// behavior the real hardware exhibits at the extremes of the domain
// (see ps_rsqrte in the original interpreter).
func execPsRsqrte(c *Core, in Instruction) {
	b0 := c.FPR[in.RB].Paired0()
	b1 := c.FPR[in.RB].Paired1()

	vxsnan0 := isSignalingNaN64(b0)
	vxsnan1 := isSignalingNaN64(b1)
	vxsqrt0 := !vxsnan0 && signbit64(b0) && !isZero64(b0)
	vxsqrt1 := !vxsnan1 && signbit64(b1) && !isZero64(b1)
	zx0 := isZero64(b0)
	zx1 := isZero64(b1)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan0 || vxsnan1)
	c.FPSCR.Value |= boolBit(vxsqrt0 || vxsqrt1, fpscrVXSQRT)
	c.FPSCR.OrZX(zx0 || zx1)

	write := true
	var r0, r1 reciprocalRootResult
	if ((vxsnan0 || vxsqrt0) && c.FPSCR.VE()) || (zx0 && c.FPSCR.ZE()) {
		write = false
	} else {
		r0 = estimateReciprocalRoot(b0)
		updateFPRF64(c, r0.value)
	}
	if ((vxsnan1 || vxsqrt1) && c.FPSCR.VE()) || (zx1 && c.FPSCR.ZE()) {
		write = false
	} else {
		r1 = estimateReciprocalRoot(b1)
	}

	if write {
		bits0 := getFloatBits64(r0.value)
		bits0.mantissa &= 0xFFFFFE0000000
		c.FPR[in.RD].SetPaired0(bits0.float())

		bits1 := getFloatBits64(r1.value)
		switch {
		case bits1.exponent == 0:
			// Stays zero: the reciprocal square root is never denormal.
		case bits1.exponent < 1151:
			exponent8 := int8((int32(bits1.exponent) - 1023) & 0xFF)
			bits1.exponent = uint32(1023 + int32(exponent8))
		case bits1.exponent < 2047:
			bits1.exponent = 1022
		}
		bits1.mantissa &= 0xFFFFFE0000000
		c.FPR[in.RD].SetPaired1(bits1.float())
	}

	updateFXFEXVX(c, oldFPSCR)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execPsSel(c *Core, in Instruction) {
	a0 := c.FPR[in.RA].Paired0()
	a1 := c.FPR[in.RA].Paired1()
	b0 := c.FPR[in.RB].Paired0()
	b1 := c.FPR[in.RB].Paired1()
	cc0 := c.FPR[in.RC].Paired0()
	cc1 := c.FPR[in.RC].Paired1()

	var d0, d1 float64
	if a0 >= 0 {
		d0 = cc0
	} else {
		d0 = b0
	}
	if a1 >= 0 {
		d1 = cc1
	} else {
		d1 = b1
	}

	c.FPR[in.RD].SetPaired0(d0)
	c.FPR[in.RD].SetPaired1(d1)

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func registerPairedInstructions() {
	registerHandler(InsPsMr, execPsMr)
	registerHandler(InsPsNeg, execPsNeg)
	registerHandler(InsPsAbs, execPsAbs)
	registerHandler(InsPsNabs, execPsNabs)
	registerHandler(InsPsAdd, execPsAdd)
	registerHandler(InsPsSub, execPsSub)
	registerHandler(InsPsMul, execPsMul)
	registerHandler(InsPsDiv, execPsDiv)
	registerHandler(InsPsMuls0, execPsMuls0)
	registerHandler(InsPsMuls1, execPsMuls1)
	registerHandler(InsPsSum0, execPsSum0)
	registerHandler(InsPsSum1, execPsSum1)
	registerHandler(InsPsMadd, execPsMadd)
	registerHandler(InsPsMadds0, execPsMadds0)
	registerHandler(InsPsMadds1, execPsMadds1)
	registerHandler(InsPsMsub, execPsMsub)
	registerHandler(InsPsNmadd, execPsNmadd)
	registerHandler(InsPsNmsub, execPsNmsub)
	registerHandler(InsPsMerge00, execPsMerge00)
	registerHandler(InsPsMerge01, execPsMerge01)
	registerHandler(InsPsMerge10, execPsMerge10)
	registerHandler(InsPsMerge11, execPsMerge11)
	registerHandler(InsPsRes, execPsRes)
	registerHandler(InsPsRsqrte, execPsRsqrte)
	registerHandler(InsPsSel, execPsSel)
}
