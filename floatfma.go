// floatfma.go - fused multiply-add family (fmadd/fmsub/fnmadd/fnmsub
// and their single-precision forms), plus the two rounding helpers
// the multiply and FMA paths share.
//
// License: GPLv3 or later

package espresso

import "math"

// roundForMultiply rounds c (the second multiplicand) to 24 significant
// bits before a single-precision multiply or FMA, since the Espresso's
// single-precision multiply unit only has 24-bit inputs even though it
// computes the product at double precision. a may also be adjusted if
// rounding c pushes it to infinity and a still has room to absorb a
// power of two, keeping the intermediate product's magnitude correct
// for the FMA case.
func roundForMultiply(a, c float64) (float64, float64) {
	const roundBit = uint64(1) << 27

	aBits := getFloatBits64(a)
	cBits := getFloatBits64(c)

	if cBits.bits()&((roundBit<<1)-1) == 0 {
		return a, c
	}
	if isZero64(a) {
		return a, c
	}
	if isInfinity64(a) {
		return a, c
	}

	if cBits.exponent == 0 {
		cSign := cBits.sign
		cRaw := cBits.bits()
		for cBits.exponent == 0 {
			cRaw <<= 1
			cBits = getFloatBits64(Float64FromBits(cRaw))
			if aBits.exponent == 0 {
				return a, c
			}
			aBits.exponent--
		}
		cBits.sign = cSign
	}

	cRaw := cBits.bits()
	cRaw &^= roundBit - 1
	cRaw += cRaw & roundBit
	cBits = floatBits64{sign: cRaw >> 63, exponent: uint32((cRaw >> 52) & 0x7FF), mantissa: cRaw & 0xFFFFFFFFFFFFF}

	if isInfinity64(cBits.float()) {
		cBits.exponent--
		if aBits.exponent == 0 {
			aSign := aBits.sign
			aRaw := aBits.bits() << 1
			aBits = getFloatBits64(Float64FromBits(aRaw))
			aBits.sign = aSign
		} else if aBits.exponent < 0x7FF-1 {
			aBits.exponent++
		}
	}

	return aBits.float(), cBits.float()
}

// roundFMAResultToSingle corrects a round-to-nearest FMA result for
// the case where it landed exactly halfway between two single
// precision values, which std::fma followed by a bare narrowing
// conversion gets wrong (it rounds based on the double-precision
// result alone, not on whether any bits were actually dropped at
// infinite precision). Only called when FPSCR[RN] is Nearest.
func roundFMAResultToSingle(result, a, addend, c float64) float32 {
	if isZero64(a) || isZero64(addend) || isZero64(c) {
		return float32(result)
	}

	resultBits := getFloatBits64(result)
	if resultBits.exponent < 874 || resultBits.exponent > 1150 {
		return float32(result)
	}

	centerValue := uint64(1) << 28
	centerMask := (centerValue << 1) - 1
	if resultBits.exponent < 897 {
		shift := uint(897 - resultBits.exponent)
		centerValue <<= shift
		centerMask <<= shift
	}
	if resultBits.mantissa&centerMask != centerValue {
		return float32(result)
	}

	test := math.FMA(a, c, addend)
	testBits := getFloatBits64(test)

	raw := resultBits.bits()
	if testBits.bits() == raw {
		raw++
	} else {
		raw--
	}
	resultBits = getFloatBits64(Float64FromBits(raw))
	return float32(resultBits.float())
}

type fmaFlags uint32

const (
	fmaSubtract fmaFlags = 1 << iota
	fmaNegate
	fmaSinglePrec
)

// fmaGeneric implements fmadd/fmsub/fnmadd/fnmsub and their single-
// precision forms uniformly, always computing the fused product-sum
// at double precision via math.FMA.
func fmaGeneric(c *Core, in Instruction, flags fmaFlags) {
	a := c.FPR[in.RA].Value()
	b := c.FPR[in.RB].Value()
	cc := c.FPR[in.RC].Value()

	addend := b
	if flags&fmaSubtract != 0 {
		addend = -b
	}

	vxsnan := isSignalingNaN64(a) || isSignalingNaN64(b) || isSignalingNaN64(cc)
	vximz := (isInfinity64(a) && isZero64(cc)) || (isZero64(a) && isInfinity64(cc))
	vxisi := !vximz && !isNaN64(a) && !isNaN64(cc) &&
		(isInfinity64(a) || isInfinity64(cc)) && isInfinity64(b) &&
		(signbit64(a) != signbit64(cc)) != signbit64(addend)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.OrVXISI(vxisi)
	c.FPSCR.OrVXIMZ(vximz)

	if (vxsnan || vxisi || vximz) && c.FPSCR.VE() {
		updateFXFEXVX(c, oldFPSCR)
		if in.RcBit {
			updateFloatConditionRegister(c)
		}
		return
	}

	var d float64
	switch {
	case isNaN64(a):
		d = makeQuietDouble(a)
	case isNaN64(b):
		d = makeQuietDouble(b)
	case isNaN64(cc):
		d = makeQuietDouble(cc)
	case vxisi || vximz:
		d = canonicalNaN64()
	default:
		single := flags&fmaSinglePrec != 0
		if single {
			a, cc = roundForMultiply(a, cc)
		}
		d = math.FMA(a, cc, addend)
		if flags&fmaNegate != 0 {
			d = -d
		}
	}

	if flags&fmaSinglePrec != 0 {
		var narrow float32
		if c.FPSCR.RN() == RoundNearest {
			narrow = roundFMAResultToSingle(d, a, addend, cc)
		} else {
			narrow = float32(d)
		}
		wide := extendFloat(narrow)
		c.FPR[in.RD].SetPaired0(wide)
		c.FPR[in.RD].SetPaired1(wide)
		updateFPRF32(c, narrow)
	} else {
		c.FPR[in.RD].SetValue(d)
		updateFPRF64(c, d)
	}

	updateFXFEXVX(c, oldFPSCR)

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFmadd(c *Core, in Instruction)   { fmaGeneric(c, in, 0) }
func execFmadds(c *Core, in Instruction)  { fmaGeneric(c, in, fmaSinglePrec) }
func execFmsub(c *Core, in Instruction)   { fmaGeneric(c, in, fmaSubtract) }
func execFmsubs(c *Core, in Instruction)  { fmaGeneric(c, in, fmaSubtract|fmaSinglePrec) }
func execFnmadd(c *Core, in Instruction)  { fmaGeneric(c, in, fmaNegate) }
func execFnmadds(c *Core, in Instruction) { fmaGeneric(c, in, fmaNegate|fmaSinglePrec) }
func execFnmsub(c *Core, in Instruction)  { fmaGeneric(c, in, fmaNegate|fmaSubtract) }
func execFnmsubs(c *Core, in Instruction) { fmaGeneric(c, in, fmaNegate|fmaSubtract|fmaSinglePrec) }
