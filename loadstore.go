// loadstore.go - integer and float load/store families, the string
// (lswi/lswx/stswi/stswx) and multiple-word (lmw/stmw) variants, and
// the lwarx/stwcx. reservation pair.
//
// License: GPLv3 or later

package espresso

func effectiveAddress(c *Core, in Instruction, zeroRA, indexed bool) uint32 {
	var ea uint32
	if zeroRA && in.RA == 0 {
		ea = 0
	} else {
		ea = c.GPR[in.RA]
	}
	if indexed {
		ea += c.GPR[in.RB]
	} else {
		ea += uint32(in.D)
	}
	return ea
}

// --- integer loads ---

func loadInt(c *Core, in Instruction, size int, signExtend, zeroRA, indexed, update, reverse bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)

	var value uint32
	switch size {
	case 1:
		value = uint32(c.Memory.ReadU8(ea))
	case 2:
		if reverse {
			value = uint32(c.Memory.ReadU16Reversed(ea))
		} else {
			value = uint32(c.Memory.ReadU16(ea))
		}
		if signExtend {
			value = uint32(int32(int16(value)))
		}
	case 4:
		if reverse {
			value = c.Memory.ReadU32Reversed(ea)
		} else {
			value = c.Memory.ReadU32(ea)
		}
	}

	if size == 1 && signExtend {
		value = uint32(int32(int8(value)))
	}

	c.GPR[in.RD] = value
	if update {
		c.GPR[in.RA] = ea
	}
}

func execLbz(c *Core, in Instruction)   { loadInt(c, in, 1, false, true, false, false, false) }
func execLbzu(c *Core, in Instruction)  { loadInt(c, in, 1, false, false, false, true, false) }
func execLbzux(c *Core, in Instruction) { loadInt(c, in, 1, false, false, true, true, false) }
func execLbzx(c *Core, in Instruction)  { loadInt(c, in, 1, false, true, true, false, false) }

func execLha(c *Core, in Instruction)   { loadInt(c, in, 2, true, true, false, false, false) }
func execLhau(c *Core, in Instruction)  { loadInt(c, in, 2, true, false, false, true, false) }
func execLhaux(c *Core, in Instruction) { loadInt(c, in, 2, true, false, true, true, false) }
func execLhax(c *Core, in Instruction)  { loadInt(c, in, 2, true, true, true, false, false) }

func execLhz(c *Core, in Instruction)   { loadInt(c, in, 2, false, true, false, false, false) }
func execLhzu(c *Core, in Instruction)  { loadInt(c, in, 2, false, false, false, true, false) }
func execLhzux(c *Core, in Instruction) { loadInt(c, in, 2, false, false, true, true, false) }
func execLhzx(c *Core, in Instruction)  { loadInt(c, in, 2, false, true, true, false, false) }

func execLwz(c *Core, in Instruction)   { loadInt(c, in, 4, false, true, false, false, false) }
func execLwzu(c *Core, in Instruction)  { loadInt(c, in, 4, false, false, false, true, false) }
func execLwzux(c *Core, in Instruction) { loadInt(c, in, 4, false, false, true, true, false) }
func execLwzx(c *Core, in Instruction)  { loadInt(c, in, 4, false, true, true, false, false) }

func execLhbrx(c *Core, in Instruction) { loadInt(c, in, 2, false, true, true, false, true) }
func execLwbrx(c *Core, in Instruction) { loadInt(c, in, 4, false, true, true, false, true) }

// lwarx establishes a reservation on the addressed word in addition to
// the ordinary 32-bit load.
func execLwarx(c *Core, in Instruction) {
	ea := effectiveAddress(c, in, true, true)
	value := c.Memory.ReadU32(ea)
	c.GPR[in.RD] = value
	c.ReserveFlag = true
	c.ReserveAddr = ea
	c.ReserveData = value
}

// --- float loads ---

func execLfs(c *Core, in Instruction)   { loadFloatSingle(c, in, true, false, false) }
func execLfsu(c *Core, in Instruction)  { loadFloatSingle(c, in, false, false, true) }
func execLfsux(c *Core, in Instruction) { loadFloatSingle(c, in, false, true, true) }
func execLfsx(c *Core, in Instruction)  { loadFloatSingle(c, in, true, true, false) }

func loadFloatSingle(c *Core, in Instruction, zeroRA, indexed, update bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)
	bits := c.Memory.ReadU32(ea)
	f := Float32FromBits(bits)
	d := extendFloat(f)
	c.FPR[in.RD].SetPaired0(d)
	c.FPR[in.RD].SetPaired1(d)
	if update {
		c.GPR[in.RA] = ea
	}
}

// lfd (and its variants) load a double into the register's full 64-bit
// value view. ps1 aliases the low 32 bits of that view, so afterwards
// it reads the double's low word; see DESIGN.md's Open Question 1.
func execLfd(c *Core, in Instruction)   { loadFloatDouble(c, in, true, false, false) }
func execLfdu(c *Core, in Instruction)  { loadFloatDouble(c, in, false, false, true) }
func execLfdux(c *Core, in Instruction) { loadFloatDouble(c, in, false, true, true) }
func execLfdx(c *Core, in Instruction)  { loadFloatDouble(c, in, true, true, false) }

func loadFloatDouble(c *Core, in Instruction, zeroRA, indexed, update bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)
	hi := c.Memory.ReadU32(ea)
	lo := c.Memory.ReadU32(ea + 4)
	bits := uint64(hi)<<32 | uint64(lo)
	c.FPR[in.RD].SetValue(Float64FromBits(bits))
	if update {
		c.GPR[in.RA] = ea
	}
}

// --- multiple/string word ---

func execLmw(c *Core, in Instruction) {
	var base uint32
	if in.RA != 0 {
		base = c.GPR[in.RA]
	}
	ea := base + uint32(in.D)
	for r := in.RD; r <= 31; r++ {
		c.GPR[r] = c.Memory.ReadU32(ea)
		ea += 4
	}
}

func execStmw(c *Core, in Instruction) {
	var base uint32
	if in.RA != 0 {
		base = c.GPR[in.RA]
	}
	ea := base + uint32(in.D)
	for r := in.RS; r <= 31; r++ {
		c.Memory.WriteU32(ea, c.GPR[r])
		ea += 4
	}
}

func lswGeneric(c *Core, in Instruction, indexed bool) {
	var ea uint32
	if in.RA != 0 {
		ea = c.GPR[in.RA]
	}

	var n uint32
	if indexed {
		ea += c.GPR[in.RB]
		n = c.XER.ByteCount()
	} else {
		n = in.NB
	}

	r := (in.RD + 31) % 32
	i := uint32(0)
	for n > 0 {
		if i == 0 {
			r = (r + 1) % 32
			c.GPR[r] = 0
		}
		c.GPR[r] |= uint32(c.Memory.ReadU8(ea)) << (24 - i)
		i = (i + 8) % 32
		ea++
		n--
	}
}

func execLswi(c *Core, in Instruction) { lswGeneric(c, in, false) }
func execLswx(c *Core, in Instruction) { lswGeneric(c, in, true) }

func stswGeneric(c *Core, in Instruction, indexed bool) {
	var ea uint32
	if in.RA != 0 {
		ea = c.GPR[in.RA]
	}

	var n uint32
	if indexed {
		ea += c.GPR[in.RB]
		n = c.XER.ByteCount()
	} else {
		n = in.NB
	}

	r := (in.RS + 31) % 32
	i := uint32(0)
	for n > 0 {
		if i == 0 {
			r = (r + 1) % 32
		}
		c.Memory.WriteU8(ea, uint8(c.GPR[r]>>(24-i)))
		i = (i + 8) % 32
		ea++
		n--
	}
}

func execStswi(c *Core, in Instruction) { stswGeneric(c, in, false) }
func execStswx(c *Core, in Instruction) { stswGeneric(c, in, true) }

// --- integer stores ---

func storeInt(c *Core, in Instruction, size int, zeroRA, indexed, update, reverse bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)
	s := c.GPR[in.RS]
	switch size {
	case 1:
		c.Memory.WriteU8(ea, uint8(s))
	case 2:
		if reverse {
			c.Memory.WriteU16Reversed(ea, uint16(s))
		} else {
			c.Memory.WriteU16(ea, uint16(s))
		}
	case 4:
		if reverse {
			c.Memory.WriteU32Reversed(ea, s)
		} else {
			c.Memory.WriteU32(ea, s)
		}
	}
	if update {
		c.GPR[in.RA] = ea
	}
}

func execStb(c *Core, in Instruction)   { storeInt(c, in, 1, true, false, false, false) }
func execStbu(c *Core, in Instruction)  { storeInt(c, in, 1, false, false, true, false) }
func execStbux(c *Core, in Instruction) { storeInt(c, in, 1, false, true, true, false) }
func execStbx(c *Core, in Instruction)  { storeInt(c, in, 1, true, true, false, false) }

func execSth(c *Core, in Instruction)   { storeInt(c, in, 2, true, false, false, false) }
func execSthu(c *Core, in Instruction)  { storeInt(c, in, 2, false, false, true, false) }
func execSthux(c *Core, in Instruction) { storeInt(c, in, 2, false, true, true, false) }
func execSthx(c *Core, in Instruction)  { storeInt(c, in, 2, true, true, false, false) }

func execStw(c *Core, in Instruction)   { storeInt(c, in, 4, true, false, false, false) }
func execStwu(c *Core, in Instruction)  { storeInt(c, in, 4, false, false, true, false) }
func execStwux(c *Core, in Instruction) { storeInt(c, in, 4, false, true, true, false) }
func execStwx(c *Core, in Instruction)  { storeInt(c, in, 4, true, true, false, false) }

func execSthbrx(c *Core, in Instruction) { storeInt(c, in, 2, true, true, false, true) }
func execStwbrx(c *Core, in Instruction) { storeInt(c, in, 4, true, true, false, true) }

// stwcx. performs the compare-and-swap against the reservation and
// always updates CR0: Equal set on success, cleared (but SO preserved)
// on failure, matching ReservedWrite<true>::write.
func execStwcxDot(c *Core, in Instruction) {
	ea := effectiveAddress(c, in, true, true)
	s := c.GPR[in.RS]

	var cr0 uint32
	if c.XER.SO() {
		cr0 = uint32(CRSummaryOverflow)
	}

	reserved := c.ReserveFlag
	c.ReserveFlag = false

	if !reserved {
		c.CR.SetField(0, cr0)
		return
	}

	ok := c.Memory.AtomicCompareAndSwapU32(ea, c.ReserveData, s)
	if ok {
		cr0 |= uint32(CREqual)
	}
	c.CR.SetField(0, cr0)
}

// --- float stores ---

func execStfs(c *Core, in Instruction)   { storeFloatSingle(c, in, true, false, false) }
func execStfsu(c *Core, in Instruction)  { storeFloatSingle(c, in, false, false, true) }
func execStfsux(c *Core, in Instruction) { storeFloatSingle(c, in, false, true, true) }
func execStfsx(c *Core, in Instruction)  { storeFloatSingle(c, in, true, true, false) }

// storeDoubleAsFloat mirrors the original's bit-level conversion: a
// plain truncateDoubleBits handles the NaN/Inf/normal case, while
// denormal singles that would round to zero under truncation are
// instead computed manually via the mantissa shift the original uses
// (storeDoubleAsFloat), since truncation alone loses the nonzero
// denormal bits a single-precision denormal still has room for.
func storeDoubleAsFloatBits(d float64) uint32 {
	b := getFloatBits64(d)
	if b.exponent > 896 || (b.mantissa<<1) == 0 {
		return truncateDoubleBits(d2bits(d))
	}
	shifted := ((uint64(1) << 23) | (b.mantissa >> 29)) >> (897 - b.exponent)
	bits := uint32(shifted)
	bits |= uint32(b.sign) << 31
	return bits
}

func d2bits(d float64) uint64 { return Float64Bits(d) }

func storeFloatSingle(c *Core, in Instruction, zeroRA, indexed, update bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)
	d := c.FPR[in.RS].Value()
	c.Memory.WriteU32(ea, storeDoubleAsFloatBits(d))
	if update {
		c.GPR[in.RA] = ea
	}
}

func execStfd(c *Core, in Instruction)   { storeFloatDouble(c, in, true, false, false) }
func execStfdu(c *Core, in Instruction)  { storeFloatDouble(c, in, false, false, true) }
func execStfdux(c *Core, in Instruction) { storeFloatDouble(c, in, false, true, true) }
func execStfdx(c *Core, in Instruction)  { storeFloatDouble(c, in, true, true, false) }

func storeFloatDouble(c *Core, in Instruction, zeroRA, indexed, update bool) {
	ea := effectiveAddress(c, in, zeroRA, indexed)
	bits := Float64Bits(c.FPR[in.RS].Value())
	c.Memory.WriteU32(ea, uint32(bits>>32))
	c.Memory.WriteU32(ea+4, uint32(bits))
	if update {
		c.GPR[in.RA] = ea
	}
}

// stfiwx stores the raw low 32 bits of the FPR's integer view, not a
// converted value.
func execStfiwx(c *Core, in Instruction) {
	ea := effectiveAddress(c, in, true, true)
	c.Memory.WriteU32(ea, c.FPR[in.RS].IW1())
}

// --- paired-single quantized load/store ---

func quantizedElementSize(t QuantizedDataType) uint32 {
	switch t {
	case QuantizedUnsigned8, QuantizedSigned8:
		return 1
	case QuantizedUnsigned16, QuantizedSigned16:
		return 2
	default:
		return 4
	}
}

func dequantize(c *Core, ea uint32, t QuantizedDataType, scale uint32) float64 {
	exp := int32(scale)
	exp -= (exp & 32) << 1

	switch t {
	case QuantizedFloating:
		bits := c.Memory.ReadU32(ea)
		f := Float32FromBits(bits)
		return extendFloat(f)
	case QuantizedUnsigned8:
		return ldexp(float64(c.Memory.ReadU8(ea)), -exp)
	case QuantizedUnsigned16:
		return ldexp(float64(c.Memory.ReadU16(ea)), -exp)
	case QuantizedSigned8:
		return ldexp(float64(int8(c.Memory.ReadU8(ea))), -exp)
	case QuantizedSigned16:
		return ldexp(float64(int16(c.Memory.ReadU16(ea))), -exp)
	}
	return 0
}

func clampTo[T ~int8 | ~int16 | ~uint8 | ~uint16](value float64, min, max float64) T {
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return T(value)
}

func quantize(c *Core, ea uint32, value float64, t QuantizedDataType, scale uint32) {
	exp := int32(scale)
	exp -= (exp & 32) << 1

	switch t {
	case QuantizedFloating:
		if getFloatBits64(value).exponent <= 896 {
			sign := uint32(0)
			if signbit64(value) {
				sign = 1
			}
			c.Memory.WriteU32(ea, sign<<31)
		} else {
			c.Memory.WriteU32(ea, storeDoubleAsFloatBits(value))
		}
	case QuantizedUnsigned8:
		if isNaN64(value) {
			if signbit64(value) {
				c.Memory.WriteU8(ea, 0)
			} else {
				c.Memory.WriteU8(ea, 0xFF)
			}
		} else {
			c.Memory.WriteU8(ea, clampTo[uint8](ldexp(value, exp), 0, 255))
		}
	case QuantizedUnsigned16:
		if isNaN64(value) {
			if signbit64(value) {
				c.Memory.WriteU16(ea, 0)
			} else {
				c.Memory.WriteU16(ea, 0xFFFF)
			}
		} else {
			c.Memory.WriteU16(ea, clampTo[uint16](ldexp(value, exp), 0, 65535))
		}
	case QuantizedSigned8:
		if isNaN64(value) {
			if signbit64(value) {
				c.Memory.WriteU8(ea, uint8(int8(-0x80)))
			} else {
				c.Memory.WriteU8(ea, uint8(int8(0x7F)))
			}
		} else {
			c.Memory.WriteU8(ea, uint8(clampTo[int8](ldexp(value, exp), -128, 127)))
		}
	case QuantizedSigned16:
		if isNaN64(value) {
			if signbit64(value) {
				c.Memory.WriteU16(ea, uint16(int16(-0x8000)))
			} else {
				c.Memory.WriteU16(ea, uint16(int16(0x7FFF)))
			}
		} else {
			c.Memory.WriteU16(ea, uint16(clampTo[int16](ldexp(value, exp), -32768, 32767)))
		}
	}
}

func psqLoad(c *Core, in Instruction, zeroRA, indexed bool) {
	var ea uint32
	if zeroRA && in.RA == 0 {
		ea = 0
	} else {
		ea = c.GPR[in.RA]
	}
	if indexed {
		ea += c.GPR[in.RB]
	} else {
		ea += uint32(in.D)
	}

	gqr := &c.GQR[in.I]
	lt := gqr.LoadType()
	ls := gqr.LoadScale()
	size := quantizedElementSize(lt)

	if in.W == 0 {
		c.FPR[in.RD].SetPaired0(dequantize(c, ea, lt, ls))
		c.FPR[in.RD].SetPaired1(dequantize(c, ea+size, lt, ls))
	} else {
		c.FPR[in.RD].SetPaired0(dequantize(c, ea, lt, ls))
		c.FPR[in.RD].SetPaired1(1.0)
	}

	if zeroRA == false {
		// load with update forms pass zeroRA=false to mean "always
		// write back"; see exec wrappers below.
		c.GPR[in.RA] = ea
	}
}

func execPsqL(c *Core, in Instruction)    { psqLoad(c, in, true, false) }
func execPsqLx(c *Core, in Instruction)   { psqLoad(c, in, true, true) }
func execPsqLu(c *Core, in Instruction)   { psqLoad(c, in, false, false) }
func execPsqLux(c *Core, in Instruction)  { psqLoad(c, in, false, true) }

func psqStore(c *Core, in Instruction, zeroRA, indexed bool) {
	var ea uint32
	if zeroRA && in.RA == 0 {
		ea = 0
	} else {
		ea = c.GPR[in.RA]
	}
	if indexed {
		ea += c.GPR[in.RB]
	} else {
		ea += uint32(in.D)
	}

	gqr := &c.GQR[in.I]
	st := gqr.StoreType()
	ss := gqr.StoreScale()
	size := quantizedElementSize(st)

	if in.W == 0 {
		quantize(c, ea, c.FPR[in.RS].Paired0(), st, ss)
		quantize(c, ea+size, c.FPR[in.RS].Paired1(), st, ss)
	} else {
		quantize(c, ea, c.FPR[in.RS].Paired0(), st, ss)
	}

	if zeroRA == false {
		c.GPR[in.RA] = ea
	}
}

func execPsqSt(c *Core, in Instruction)   { psqStore(c, in, true, false) }
func execPsqStx(c *Core, in Instruction)  { psqStore(c, in, true, true) }
func execPsqStu(c *Core, in Instruction)  { psqStore(c, in, false, false) }
func execPsqStux(c *Core, in Instruction) { psqStore(c, in, false, true) }

func registerLoadStoreInstructions() {
	registerHandler(InsLbz, execLbz)
	registerHandler(InsLbzu, execLbzu)
	registerHandler(InsLbzux, execLbzux)
	registerHandler(InsLbzx, execLbzx)
	registerHandler(InsLha, execLha)
	registerHandler(InsLhau, execLhau)
	registerHandler(InsLhaux, execLhaux)
	registerHandler(InsLhax, execLhax)
	registerHandler(InsLhz, execLhz)
	registerHandler(InsLhzu, execLhzu)
	registerHandler(InsLhzux, execLhzux)
	registerHandler(InsLhzx, execLhzx)
	registerHandler(InsLwz, execLwz)
	registerHandler(InsLwzu, execLwzu)
	registerHandler(InsLwzux, execLwzux)
	registerHandler(InsLwzx, execLwzx)
	registerHandler(InsLhbrx, execLhbrx)
	registerHandler(InsLwbrx, execLwbrx)
	registerHandler(InsLwarx, execLwarx)
	registerHandler(InsLfs, execLfs)
	registerHandler(InsLfsu, execLfsu)
	registerHandler(InsLfsux, execLfsux)
	registerHandler(InsLfsx, execLfsx)
	registerHandler(InsLfd, execLfd)
	registerHandler(InsLfdu, execLfdu)
	registerHandler(InsLfdux, execLfdux)
	registerHandler(InsLfdx, execLfdx)
	registerHandler(InsLmw, execLmw)
	registerHandler(InsStmw, execStmw)
	registerHandler(InsLswi, execLswi)
	registerHandler(InsLswx, execLswx)
	registerHandler(InsStswi, execStswi)
	registerHandler(InsStswx, execStswx)
	registerHandler(InsStb, execStb)
	registerHandler(InsStbu, execStbu)
	registerHandler(InsStbux, execStbux)
	registerHandler(InsStbx, execStbx)
	registerHandler(InsSth, execSth)
	registerHandler(InsSthu, execSthu)
	registerHandler(InsSthux, execSthux)
	registerHandler(InsSthx, execSthx)
	registerHandler(InsStw, execStw)
	registerHandler(InsStwu, execStwu)
	registerHandler(InsStwux, execStwux)
	registerHandler(InsStwx, execStwx)
	registerHandler(InsSthbrx, execSthbrx)
	registerHandler(InsStwbrx, execStwbrx)
	registerHandler(InsStwcxDot, execStwcxDot)
	registerHandler(InsStfs, execStfs)
	registerHandler(InsStfsu, execStfsu)
	registerHandler(InsStfsux, execStfsux)
	registerHandler(InsStfsx, execStfsx)
	registerHandler(InsStfd, execStfd)
	registerHandler(InsStfdu, execStfdu)
	registerHandler(InsStfdux, execStfdux)
	registerHandler(InsStfdx, execStfdx)
	registerHandler(InsStfiwx, execStfiwx)
	registerHandler(InsPsqL, execPsqL)
	registerHandler(InsPsqLx, execPsqLx)
	registerHandler(InsPsqLu, execPsqLu)
	registerHandler(InsPsqLux, execPsqLux)
	registerHandler(InsPsqSt, execPsqSt)
	registerHandler(InsPsqStx, execPsqStx)
	registerHandler(InsPsqStu, execPsqStu)
	registerHandler(InsPsqStux, execPsqStux)
}
