// condition.go - compare, floating compare, condition-register logical
// ops, and the mfcr/mtcrf/mcrf/mcrfs/mcrxr family.
//
// License: GPLv3 or later

package espresso

func crBit(c *Core, bit uint32) uint32      { return c.CR.Bit(bit) }
func setCRBit(c *Core, bit, value uint32)   { c.CR.SetBit(bit, value) }

func cmpSigned(c *Core, in Instruction, b int32) {
	a := int32(c.GPR[in.RA])
	var field uint32
	switch {
	case a < b:
		field = uint32(CRLessThan)
	case a > b:
		field = uint32(CRGreaterThan)
	default:
		field = uint32(CREqual)
	}
	if c.XER.SO() {
		field |= uint32(CRSummaryOverflow)
	}
	c.CR.SetField(in.CRFD, field)
}

func cmpUnsigned(c *Core, in Instruction, b uint32) {
	a := c.GPR[in.RA]
	var field uint32
	switch {
	case a < b:
		field = uint32(CRLessThan)
	case a > b:
		field = uint32(CRGreaterThan)
	default:
		field = uint32(CREqual)
	}
	if c.XER.SO() {
		field |= uint32(CRSummaryOverflow)
	}
	c.CR.SetField(in.CRFD, field)
}

func execCmp(c *Core, in Instruction)  { cmpSigned(c, in, int32(c.GPR[in.RB])) }
func execCmpi(c *Core, in Instruction) { cmpSigned(c, in, in.SIMM) }
func execCmpl(c *Core, in Instruction) { cmpUnsigned(c, in, c.GPR[in.RB]) }
func execCmpli(c *Core, in Instruction) { cmpUnsigned(c, in, in.UIMM) }

// CRUnordered shares the same bit position as CRSummaryOverflow in the
// real encoding (field-relative bit 0, "un"/"so" alias), matching
// ConditionRegisterFlag::Unordered == SummaryOverflow in the original.
const CRUnorderedField = uint32(CRSummaryOverflow)

func fcmpGeneric(c *Core, in Instruction, ordered, ps1 bool) {
	var a, b float64
	if ps1 {
		a = c.FPR[in.RA].Paired1()
		b = c.FPR[in.RB].Paired1()
	} else {
		a = c.FPR[in.RA].Value()
		b = c.FPR[in.RB].Value()
	}

	oldFPSCR := c.FPSCR.Value

	var field uint32
	if isNaN64(a) || isNaN64(b) {
		field = CRUnorderedField
		vxsnan := isSignalingNaN64(a) || isSignalingNaN64(b)
		c.FPSCR.OrVXSNAN(vxsnan)
		if ordered && !(vxsnan && c.FPSCR.VE()) {
			c.FPSCR.SetVXVC(true)
		}
	} else if a < b {
		field = uint32(CRLessThan)
	} else if a > b {
		field = uint32(CRGreaterThan)
	} else {
		field = uint32(CREqual)
	}

	c.CR.SetField(in.CRFD, field)
	c.FPSCR.SetFPCC(field)
	updateFXFEXVX(c, oldFPSCR)
}

func execFcmpo(c *Core, in Instruction) { fcmpGeneric(c, in, true, false) }
func execFcmpu(c *Core, in Instruction) { fcmpGeneric(c, in, false, false) }
func execPsCmpo0(c *Core, in Instruction) { fcmpGeneric(c, in, true, false) }
func execPsCmpo1(c *Core, in Instruction) { fcmpGeneric(c, in, true, true) }
func execPsCmpu0(c *Core, in Instruction) { fcmpGeneric(c, in, false, false) }
func execPsCmpu1(c *Core, in Instruction) { fcmpGeneric(c, in, false, true) }

func execCrand(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, crBit(c, in.CRBA)&crBit(c, in.CRBB))
}
func execCrandc(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, crBit(c, in.CRBA)&^crBit(c, in.CRBB))
}
func execCreqv(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, (^(crBit(c, in.CRBA)^crBit(c, in.CRBB)))&1)
}
func execCrnand(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, (^(crBit(c, in.CRBA)&crBit(c, in.CRBB)))&1)
}
func execCrnor(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, (^(crBit(c, in.CRBA)|crBit(c, in.CRBB)))&1)
}
func execCror(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, crBit(c, in.CRBA)|crBit(c, in.CRBB))
}
func execCrorc(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, crBit(c, in.CRBA)|(^crBit(c, in.CRBB)&1))
}
func execCrxor(c *Core, in Instruction) {
	setCRBit(c, in.CRBD, crBit(c, in.CRBA)^crBit(c, in.CRBB))
}

func execMcrf(c *Core, in Instruction) {
	c.CR.SetField(in.CRFD, c.CR.Field(in.CRFS))
}

// mcrfs copies one 4-bit FPSCR field into a CR field, then clears any
// exception bits among the bits it just copied (not the whole FPSCR),
// and re-derives FEX/VX. The clear is unconditional, not gated on
// whether the copied field overlaps FX/VX.
func execMcrfs(c *Core, in Instruction) {
	shift := uint(4 * (7 - in.CRFS))
	fieldBits := (c.FPSCR.Value >> shift) & 0xF
	c.CR.SetField(in.CRFD, fieldBits)

	exceptionBits := uint32(1<<fpscrFX) | FPSCRAllExceptions
	bitsToClear := exceptionBits & (0xF << shift)
	c.FPSCR.Value &^= bitsToClear
	updateFEXVX(c)
}

// mcrxr copies XER's {SO,OV,CA} snapshot into a CR field and then
// unconditionally clears it, even when crfD happens to be 0.
func execMcrxr(c *Core, in Instruction) {
	c.CR.SetField(in.CRFD, c.XER.CRXR())
	c.XER.SetSO(false)
	c.XER.SetOV(false)
	c.XER.SetCA(false)
}

func execMfcr(c *Core, in Instruction) {
	c.GPR[in.RD] = c.CR.Value
}

func execMtcrf(c *Core, in Instruction) {
	s := c.GPR[in.RS]
	var mask uint32
	for i := uint32(0); i < 8; i++ {
		if in.CRM&(1<<i) != 0 {
			mask |= 0xF << (i * 4)
		}
	}
	c.CR.Value = (s & mask) | (c.CR.Value &^ mask)
}

func registerConditionInstructions() {
	registerHandler(InsCmp, execCmp)
	registerHandler(InsCmpi, execCmpi)
	registerHandler(InsCmpl, execCmpl)
	registerHandler(InsCmpli, execCmpli)
	registerHandler(InsFcmpo, execFcmpo)
	registerHandler(InsFcmpu, execFcmpu)
	registerHandler(InsPsCmpo0, execPsCmpo0)
	registerHandler(InsPsCmpo1, execPsCmpo1)
	registerHandler(InsPsCmpu0, execPsCmpu0)
	registerHandler(InsPsCmpu1, execPsCmpu1)
	registerHandler(InsCrand, execCrand)
	registerHandler(InsCrandc, execCrandc)
	registerHandler(InsCreqv, execCreqv)
	registerHandler(InsCrnand, execCrnand)
	registerHandler(InsCrnor, execCrnor)
	registerHandler(InsCror, execCror)
	registerHandler(InsCrorc, execCrorc)
	registerHandler(InsCrxor, execCrxor)
	registerHandler(InsMcrf, execMcrf)
	registerHandler(InsMcrfs, execMcrfs)
	registerHandler(InsMcrxr, execMcrxr)
	registerHandler(InsMfcr, execMfcr)
	registerHandler(InsMtcrf, execMtcrf)
}
