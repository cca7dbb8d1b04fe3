// floatarith.go - fadd/fsub/fmul/fdiv and the shared FPSCR exception
// classification (updateFPRF, updateFloatConditionRegister, and the
// host-FPU-free result folding fpArithGeneric relies on).
//
// License: GPLv3 or later

package espresso

const (
	fprfClass     = 0x10
	fprfNegative  = 0x08
	fprfPositive  = 0x04
	fprfEqual     = 0x02
	fprfUnordered = 0x01
)

// updateFPRF classifies a freshly produced result into the FPSCR
// FPRF field (sign/class/ordering of the result, as opposed to the
// operands).
func updateFPRF64(c *Core, value float64) {
	c.FPSCR.SetFPRF(classifyFPRF(value, isNaN64(value), isInfinity64(value), isSubnormalFloat64(value), signbit64(value)))
}

func updateFPRF32(c *Core, value float32) {
	bits := Float32Bits(value)
	sign := bits>>31 != 0
	c.FPSCR.SetFPRF(classifyFPRF(float64(value), isNaN32(value), math32IsInf(value), isSubnormalFloat32(value), sign))
}

func math32IsInf(f float32) bool {
	bits := Float32Bits(f)
	return (bits&0x7FFFFFFF) == 0x7F800000
}

func classifyFPRF(value float64, isNaN, isInf, isSubnormal, negative bool) uint32 {
	var flags uint32
	switch {
	case isNaN:
		flags = fprfClass | fprfUnordered
	case value != 0:
		if negative {
			flags |= fprfNegative
		} else {
			flags |= fprfPositive
		}
		if isInf {
			flags |= fprfUnordered
		} else if isSubnormal {
			flags |= fprfClass
		}
	default:
		flags = fprfEqual
		if negative {
			flags |= fprfClass
		}
	}
	return flags
}

// updateFloatConditionRegister mirrors CR1 from FPSCR's FX/FEX/VX/OX
// summary bits, as every rc-form floating instruction does.
func updateFloatConditionRegister(c *Core) {
	fx := boolToUint32(c.FPSCR.FX())
	fex := boolToUint32(c.FPSCR.FEX())
	vx := boolToUint32(c.FPSCR.VX())
	ox := boolToUint32(c.FPSCR.OX())
	field := (fx << 3) | (fex << 2) | (vx << 1) | ox
	c.CR.SetField(1, field)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func boolBit(b bool, pos uint) uint32 {
	if b {
		return 1 << pos
	}
	return 0
}

type fpArithOp int

const (
	fpAdd fpArithOp = iota
	fpSub
	fpMul
	fpDiv
)

var fpu HostFPUControl

// fpArithGeneric implements fadd/fsub/fmul/fdiv (and their single-
// precision forms) uniformly: classify invalid-operation conditions
// from the raw operands, then perform the arithmetic at double
// precision (the hardware always computes in double precision even
// for single-precision forms) and narrow only at the end.
func fpArithGeneric(c *Core, in Instruction, op fpArithOp, single bool) {
	a := c.FPR[in.RA].Value()
	var b float64
	if op == fpMul {
		b = c.FPR[in.RC].Value()
	} else {
		b = c.FPR[in.RB].Value()
	}

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

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.OrVXISI(vxisi)
	c.FPSCR.OrVXIMZ(vximz)
	c.FPSCR.OrVXIDI(vxidi)
	c.FPSCR.OrVXZDZ(vxzdz)

	switch {
	case (vxsnan || vxisi || vximz || vxidi || vxzdz) && c.FPSCR.VE():
		updateFXFEXVX(c, oldFPSCR)
	case zx && c.FPSCR.ZE():
		c.FPSCR.OrZX(true)
		updateFXFEXVX(c, oldFPSCR)
	default:
		var d float64
		switch {
		case isNaN64(a):
			d = makeQuietDouble(a)
		case isNaN64(b):
			d = makeQuietDouble(b)
		case vxisi || vximz || vxidi || vxzdz:
			d = canonicalNaN64()
		default:
			if op == fpMul && single {
				a, b = roundForMultiply(a, b)
			}
			switch op {
			case fpAdd:
				d = a + b
			case fpSub:
				d = a - b
			case fpMul:
				d = a * b
			case fpDiv:
				d = a / b
			}
		}

		c.FPSCR.OrZX(zx)
		if single {
			narrow := float32(d)
			wide := extendFloat(narrow)
			c.FPR[in.RD].SetPaired0(wide)
			c.FPR[in.RD].SetPaired1(wide)
			updateFPRF32(c, narrow)
			c.FPSCR.OrOX(fpu.Overflow(a, b, float64(narrow)))
			c.FPSCR.OrUX(fpu.UnderflowFloat(narrow))
			fi := fpu.InexactNarrow(d, narrow)
			c.FPSCR.SetFI(fi)
			c.FPSCR.OrXX(fi)
		} else {
			c.FPR[in.RD].SetValue(d)
			updateFPRF64(c, d)
			c.FPSCR.OrOX(fpu.Overflow(a, b, d))
			c.FPSCR.OrUX(fpu.UnderflowDouble(d))
		}

		updateFXFEXVX(c, oldFPSCR)
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

func execFadd(c *Core, in Instruction)  { fpArithGeneric(c, in, fpAdd, false) }
func execFadds(c *Core, in Instruction) { fpArithGeneric(c, in, fpAdd, true) }
func execFsub(c *Core, in Instruction)  { fpArithGeneric(c, in, fpSub, false) }
func execFsubs(c *Core, in Instruction) { fpArithGeneric(c, in, fpSub, true) }
func execFmul(c *Core, in Instruction)  { fpArithGeneric(c, in, fpMul, false) }
func execFmuls(c *Core, in Instruction) { fpArithGeneric(c, in, fpMul, true) }
func execFdiv(c *Core, in Instruction)  { fpArithGeneric(c, in, fpDiv, false) }
func execFdivs(c *Core, in Instruction) { fpArithGeneric(c, in, fpDiv, true) }

// execFres implements the reciprocal-estimate single instruction,
// folding invalid/zero-divide exceptions before consulting the
// lookup-table estimate.
func execFres(c *Core, in Instruction) {
	b := c.FPR[in.RB].Value()
	vxsnan := isSignalingNaN64(b)
	zx := isZero64(b)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)

	switch {
	case vxsnan && c.FPSCR.VE():
		updateFXFEXVX(c, oldFPSCR)
	case zx && c.FPSCR.ZE():
		c.FPSCR.OrZX(true)
		updateFXFEXVX(c, oldFPSCR)
	default:
		result := estimateReciprocal(float32(b))
		wide := extendFloat(result.value)
		c.FPR[in.RD].SetPaired0(wide)
		c.FPR[in.RD].SetPaired1(wide)
		updateFPRF32(c, result.value)
		c.FPSCR.OrZX(zx)
		c.FPSCR.SetVXCVI(c.FPSCR.VXCVI() || result.invalid)
		c.FPSCR.OrUX(result.underflow)
		// fres sets FI on an inexact result without also setting XX,
		// unlike every other arithmetic form.
		updateFXFEXVX(c, oldFPSCR)
		if result.inexact {
			c.FPSCR.SetFI(true)
		}
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}

// execFrsqrte implements the reciprocal-square-root estimate.
func execFrsqrte(c *Core, in Instruction) {
	b := c.FPR[in.RB].Value()
	vxsnan := isSignalingNaN64(b)
	vxsqrt := !vxsnan && b < 0.0
	zx := isZero64(b)

	oldFPSCR := c.FPSCR.Value
	c.FPSCR.OrVXSNAN(vxsnan)
	c.FPSCR.Value |= boolBit(vxsqrt, fpscrVXSQRT)

	switch {
	case (vxsnan || vxsqrt) && c.FPSCR.VE():
		updateFXFEXVX(c, oldFPSCR)
	case zx && c.FPSCR.ZE():
		c.FPSCR.OrZX(true)
		updateFXFEXVX(c, oldFPSCR)
	default:
		result := estimateReciprocalRoot(b)
		c.FPR[in.RD].SetValue(result.value)
		updateFPRF64(c, result.value)
		c.FPSCR.OrZX(zx)
		c.FPSCR.SetVXCVI(c.FPSCR.VXCVI() || result.invalid)
		updateFXFEXVX(c, oldFPSCR)
	}

	if in.RcBit {
		updateFloatConditionRegister(c)
	}
}
