// floatmisc.go - fsel, sign-bit manipulation (fabs/fnabs/fneg/fmr),
// frsp, fctiw/fctiwz, and the FPSCR accessor instructions (mffs,
// mtfsb0/mtfsb1, mtfsf, mtfsfi).
//
// License: GPLv3 or later

package espresso

import "math"

func execFsel(c *Core, in Instruction) {
	a := c.FPR[in.RA].Value()
	var d float64
	if a >= 0.0 {
		d = c.FPR[in.RC].Value()
	} else {
		d = c.FPR[in.RB].Value()
	}
	c.FPR[in.RD].SetValue(d)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// fabs/fnabs/fneg/fmr are pure sign-bit (or full-register) moves and
// never consult FPSCR for exceptions; whether they affect ps1 the way
// fmr does is left unspecified by the manual, so this mirrors the
// hardware's observed behavior of always copying the full 64 bits.
func execFabs(c *Core, in Instruction) {
	c.FPR[in.RD].SetIDW(c.FPR[in.RB].IDW() &^ (uint64(1) << 63))
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFnabs(c *Core, in Instruction) {
	c.FPR[in.RD].SetIDW(c.FPR[in.RB].IDW() | (uint64(1) << 63))
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFmr(c *Core, in Instruction) {
	c.FPR[in.RD].SetIDW(c.FPR[in.RB].IDW())
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFneg(c *Core, in Instruction) {
	c.FPR[in.RD].SetIDW(c.FPR[in.RB].IDW() ^ (uint64(1) << 63))
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// execFrsp rounds a double to single precision, copying the result
// into both paired-single lanes as every single-precision-producing
// instruction does (the manual leaves ps1 undefined, but the real
// processor copies it).
func execFrsp(c *Core, in Instruction) {
	b := c.FPR[in.RB].Value()
	vxsnan := isSignalingNaN64(b)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)

	if vxsnan && c.FPSCR.VE() {
		updateFXFEXVX(c, oldFPSCR)
	} else {
		d := float32(b)
		wide := extendFloat(d)
		c.FPR[in.RD].SetPaired0(wide)
		c.FPR[in.RD].SetPaired1(wide)
		updateFPRF32(c, d)
		updateFXFEXVX(c, oldFPSCR)
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// fctiwGeneric implements fctiw/fctiwz: convert a double to a signed
// 32-bit integer stored in the low word of frD, with the high word
// forced to the fixed pattern the hardware produces.
func fctiwGeneric(c *Core, in Instruction, mode FloatingPointRoundMode) {
	b := c.FPR[in.RB].Value()
	vxsnan := isSignalingNaN64(b)

	var vxcvi bool
	var fi bool
	var bi int32

	switch {
	case isNaN64(b):
		vxcvi = true
		bi = math.MinInt32
	case b > float64(math.MaxInt32):
		vxcvi = true
		bi = math.MaxInt32
	case b < float64(math.MinInt32):
		vxcvi = true
		bi = math.MinInt32
	default:
		switch mode {
		case RoundNearest:
			bi = int32(math.RoundToEven(b))
		case RoundZero:
			bi = int32(math.Trunc(b))
		case RoundPosInf:
			bi = int32(math.Ceil(b))
		case RoundNegInf:
			bi = int32(math.Floor(b))
		}
		fi = getFloatBits64(b).exponent < 1075 && float64(bi) != b
	}

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.SetVXCVI(c.FPSCR.VXCVI() || vxcvi)

	if (vxsnan || vxcvi) && c.FPSCR.VE() {
		c.FPSCR.SetFR(false)
		c.FPSCR.SetFI(false)
		updateFXFEXVX(c, oldFPSCR)
	} else {
		c.FPR[in.RD].SetIW1(uint32(bi))
		negZero := uint32(0)
		if isZero64(b) && signbit64(b) {
			negZero = 1
		}
		c.FPR[in.RD].SetIW0(0xFFF80000 | negZero)
		updateFXFEXVX(c, oldFPSCR)
		if fi {
			c.FPSCR.SetFI(true)
			c.FPSCR.OrXX(true)
			updateFXFEXVX(c, oldFPSCR)
		}
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFctiw(c *Core, in Instruction)  { fctiwGeneric(c, in, c.FPSCR.RN()) }
func execFctiwz(c *Core, in Instruction) { fctiwGeneric(c, in, RoundZero) }

func execMffs(c *Core, in Instruction) {
	c.FPR[in.RD].SetIW1(c.FPSCR.Value)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execMtfsb0(c *Core, in Instruction) {
	c.FPSCR.Value &^= 1 << (31 - in.CRBD)
	updateFEXVX(c)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execMtfsb1(c *Core, in Instruction) {
	oldFPSCR := c.FPSCR.Value
	c.FPSCR.Value |= 1 << (31 - in.CRBD)
	updateFXFEXVX(c, oldFPSCR)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// execMtfsf replaces each 4-bit FPSCR field selected by the 8-bit FM
// mask with the matching field from frB's low word.
func execMtfsf(c *Core, in Instruction) {
	value := c.FPR[in.RB].IW1()
	for field := uint32(0); field < 8; field++ {
		if in.FM&(1<<field) != 0 {
			mask := uint32(0xF) << (4 * field)
			c.FPSCR.Value = (c.FPSCR.Value &^ mask) | (value & mask)
		}
	}
	updateFEXVX(c)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execMtfsfi(c *Core, in Instruction) {
	shift := uint32(4 * (7 - in.CRFD))
	c.FPSCR.Value &^= 0xF << shift
	c.FPSCR.Value |= in.IMM << shift
	updateFEXVX(c)
	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func registerFloatInstructions() {
	registerHandler(InsFadd, execFadd)
	registerHandler(InsFadds, execFadds)
	registerHandler(InsFsub, execFsub)
	registerHandler(InsFsubs, execFsubs)
	registerHandler(InsFmul, execFmul)
	registerHandler(InsFmuls, execFmuls)
	registerHandler(InsFdiv, execFdiv)
	registerHandler(InsFdivs, execFdivs)
	registerHandler(InsFres, execFres)
	registerHandler(InsFrsqrte, execFrsqrte)
	registerHandler(InsFmadd, execFmadd)
	registerHandler(InsFmadds, execFmadds)
	registerHandler(InsFmsub, execFmsub)
	registerHandler(InsFmsubs, execFmsubs)
	registerHandler(InsFnmadd, execFnmadd)
	registerHandler(InsFnmadds, execFnmadds)
	registerHandler(InsFnmsub, execFnmsub)
	registerHandler(InsFnmsubs, execFnmsubs)
	registerHandler(InsFsel, execFsel)
	registerHandler(InsFabs, execFabs)
	registerHandler(InsFnabs, execFnabs)
	registerHandler(InsFneg, execFneg)
	registerHandler(InsFmr, execFmr)
	registerHandler(InsFrsp, execFrsp)
	registerHandler(InsFctiw, execFctiw)
	registerHandler(InsFctiwz, execFctiwz)
	registerHandler(InsMffs, execMffs)
	registerHandler(InsMtfsb0, execMtfsb0)
	registerHandler(InsMtfsb1, execMtfsb1)
	registerHandler(InsMtfsf, execMtfsf)
	registerHandler(InsMtfsfi, execMtfsfi)
}
