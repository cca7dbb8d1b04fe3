// decode.go - instruction word decoding: field extraction and opcode
// identification.
//
// License: GPLv3 or later

package espresso

// Instruction is a fully decoded instruction word. Every field an
// instruction family might need is extracted up front in Decode rather
// than lazily, following PowerPC's primary/secondary opcode split
// across a much wider field set than a flat opcode byte.
type Instruction struct {
	Raw uint32

	OPCD uint32 // primary opcode, bits 0-5

	RD, RS   uint32 // bits 6-10 (destination / source GPR or FPR)
	RA       uint32 // bits 11-15
	RB       uint32 // bits 16-20
	RC       uint32 // bits 21-25 (frC for A-form float ops)
	XO       uint32 // secondary opcode, bits 21-30 (X-form) or 26-30 (A-form frC-less)
	XO5      uint32 // 5-bit secondary opcode, bits 26-30 (A-form)
	OE       bool   // bit 21
	RcBit    bool   // bit 31

	CRFD, CRFS   uint32 // bits 6-8, 11-13
	CRBD         uint32 // bits 6-10
	CRBA, CRBB   uint32 // bits 11-15, 16-20
	CRM          uint32 // bits 12-19

	D    int32  // sign-extended 16-bit displacement, bits 16-31
	SIMM int32  // sign-extended 16-bit immediate, bits 16-31
	UIMM uint32 // zero-extended 16-bit immediate, bits 16-31

	LI       int32 // sign-extended 26-bit branch target, bits 6-29, <<2
	AA, LK   bool  // bits 30, 31

	BO, BI uint32 // bits 6-10, 11-15
	BD     int32  // sign-extended 14-bit branch displacement, bits 16-29, <<2

	MB, ME uint32 // bits 21-25, 26-30 (rotate mask bounds)
	SH     uint32 // bits 16-20 (rotate/shift amount, immediate forms)

	SPR uint32 // decoded (not bit-reversed) SPR number, bits 11-20
	TBR uint32 // same field, used by mftb

	NB uint32 // bits 16-20 (lswi/stswi byte count, 0 means 32)

	W  uint32 // psq W bit (bit 16 or bit 21 depending on form)
	I  uint32 // psq I field, 3 bits (GQR index)

	FM  uint32 // mtfsf 8-bit field mask, bits 7-14
	IMM uint32 // mtfsfi 4-bit immediate, bits 16-19

	KCN uint32 // 24-bit bridge-call id, bits 6-29 (this module's synthesized opcode)
}

func bits(word uint32, hiBitsFromTop, width uint) uint32 {
	shift := 32 - hiBitsFromTop - width
	mask := uint32(1)<<width - 1
	return (word >> shift) & mask
}

func signExtend(value uint32, width uint) int32 {
	shift := 32 - width
	return int32(value<<shift) >> shift
}

// Decode extracts every field this interpreter's instruction families
// use from a raw big-endian instruction word. Fields that don't apply
// to a given opcode are simply unused by that opcode's handler.
func Decode(word uint32) Instruction {
	var in Instruction
	in.Raw = word

	in.OPCD = bits(word, 0, 6)

	in.RD = bits(word, 6, 5)
	in.RS = in.RD
	in.RA = bits(word, 11, 5)
	in.RB = bits(word, 16, 5)
	in.RC = bits(word, 21, 5)
	in.XO = bits(word, 21, 10)
	in.XO5 = bits(word, 26, 5)
	in.OE = bits(word, 21, 1) != 0
	in.RcBit = bits(word, 31, 1) != 0

	in.CRFD = bits(word, 6, 3)
	in.CRFS = bits(word, 11, 3)
	in.CRBD = bits(word, 6, 5)
	in.CRBA = bits(word, 11, 5)
	in.CRBB = bits(word, 16, 5)
	in.CRM = bits(word, 12, 8)

	d16 := bits(word, 16, 16)
	in.D = signExtend(d16, 16)
	in.SIMM = in.D
	in.UIMM = d16

	li26 := bits(word, 6, 24)
	in.LI = signExtend(li26<<2, 26)
	in.AA = bits(word, 30, 1) != 0
	in.LK = bits(word, 31, 1) != 0

	in.BO = bits(word, 6, 5)
	in.BI = bits(word, 11, 5)
	bd14 := bits(word, 16, 14)
	in.BD = signExtend(bd14<<2, 16)

	in.MB = bits(word, 21, 5)
	in.ME = bits(word, 26, 5)
	in.SH = bits(word, 16, 5)

	sprHi := bits(word, 11, 5)
	sprLo := bits(word, 16, 5)
	in.SPR = (sprLo << 5) | sprHi
	in.TBR = in.SPR

	nb := bits(word, 16, 5)
	if nb == 0 {
		nb = 32
	}
	in.NB = nb

	in.KCN = bits(word, 6, 24)

	in.FM = bits(word, 7, 8)
	in.IMM = bits(word, 16, 4)

	// Quantized load/store fields differ by form: the D-form (psq_l,
	// psq_lu, psq_st, psq_stu) carries W at bit 16 and I at 17-19 with
	// a 12-bit displacement at 20-31; the X-form (psq_lx, ...) carries
	// W at bit 21 and I at 22-24.
	switch in.OPCD {
	case 56, 57, 60, 61:
		in.W = bits(word, 16, 1)
		in.I = bits(word, 17, 3)
		in.D = signExtend(bits(word, 20, 12), 12)
	case 4:
		in.W = bits(word, 21, 1)
		in.I = bits(word, 22, 3)
	}

	return in
}

// InstructionID identifies a decoded instruction for dispatch. Values
// have no relation to the real ISA's bit encoding; they are purely an
// internal handler-table index.
type InstructionID int

const (
	InsInvalid InstructionID = iota

	// Integer
	InsAdd
	InsAddc
	InsAdde
	InsAddi
	InsAddic
	InsAddicDot
	InsAddis
	InsAddme
	InsAddze
	InsAnd
	InsAndc
	InsAndiDot
	InsAndisDot
	InsCntlzw
	InsDivw
	InsDivwu
	InsEqv
	InsExtsb
	InsExtsh
	InsMulhw
	InsMulhwu
	InsMulli
	InsMullw
	InsNand
	InsNeg
	InsNor
	InsOr
	InsOrc
	InsOri
	InsOris
	InsRlwimi
	InsRlwinm
	InsRlwnm
	InsSlw
	InsSraw
	InsSrawi
	InsSrw
	InsSubf
	InsSubfc
	InsSubfe
	InsSubfic
	InsSubfme
	InsSubfze
	InsXor
	InsXori
	InsXoris

	// Branch
	InsB
	InsBc
	InsBcctr
	InsBclr
	InsSc

	// Condition
	InsCmp
	InsCmpi
	InsCmpl
	InsCmpli
	InsCrand
	InsCrandc
	InsCreqv
	InsCrnand
	InsCrnor
	InsCror
	InsCrorc
	InsCrxor
	InsMcrf
	InsMcrfs
	InsMcrxr
	InsMfcr
	InsMtcrf
	InsFcmpo
	InsFcmpu

	// Load/store
	InsLbz
	InsLbzu
	InsLbzux
	InsLbzx
	InsLha
	InsLhau
	InsLhaux
	InsLhax
	InsLhz
	InsLhzu
	InsLhzux
	InsLhzx
	InsLwz
	InsLwzu
	InsLwzux
	InsLwzx
	InsStb
	InsStbu
	InsStbux
	InsStbx
	InsSth
	InsSthu
	InsSthux
	InsSthx
	InsStw
	InsStwu
	InsStwux
	InsStwx
	InsLhbrx
	InsLwbrx
	InsSthbrx
	InsStwbrx
	InsLmw
	InsStmw
	InsLswi
	InsLswx
	InsStswi
	InsStswx
	InsLwarx
	InsStwcxDot
	InsLfd
	InsLfdu
	InsLfdux
	InsLfdx
	InsLfs
	InsLfsu
	InsLfsux
	InsLfsx
	InsStfd
	InsStfdu
	InsStfdux
	InsStfdx
	InsStfs
	InsStfsu
	InsStfsux
	InsStfsx
	InsStfiwx

	// Paired-single load/store
	InsPsqL
	InsPsqLu
	InsPsqLx
	InsPsqLux
	InsPsqSt
	InsPsqStu
	InsPsqStx
	InsPsqStux

	// Float arithmetic
	InsFadd
	InsFadds
	InsFsub
	InsFsubs
	InsFmul
	InsFmuls
	InsFdiv
	InsFdivs
	InsFres
	InsFrsqrte
	InsFmadd
	InsFmadds
	InsFmsub
	InsFmsubs
	InsFnmadd
	InsFnmadds
	InsFnmsub
	InsFnmsubs
	InsFsel
	InsFabs
	InsFnabs
	InsFneg
	InsFmr
	InsFrsp
	InsFctiw
	InsFctiwz
	InsMffs
	InsMtfsb0
	InsMtfsb1
	InsMtfsf
	InsMtfsfi

	// Paired-single arithmetic
	InsPsAdd
	InsPsSub
	InsPsMul
	InsPsDiv
	InsPsMuls0
	InsPsMuls1
	InsPsMadds0
	InsPsMadds1
	InsPsMadd
	InsPsMsub
	InsPsNmadd
	InsPsNmsub
	InsPsSum0
	InsPsSum1
	InsPsMerge00
	InsPsMerge01
	InsPsMerge10
	InsPsMerge11
	InsPsSel
	InsPsRes
	InsPsRsqrte
	InsPsMr
	InsPsNeg
	InsPsAbs
	InsPsNabs
	InsPsCmpu0
	InsPsCmpu1
	InsPsCmpo0
	InsPsCmpo1

	// System
	InsMfspr
	InsMtspr
	InsMftb
	InsMfmsr
	InsMtmsr
	InsMfsr
	InsMfsrin
	InsMtsr
	InsMtsrin
	InsDcbz
	InsDcbzL
	InsDcbf
	InsDcbi
	InsDcbst
	InsDcbt
	InsDcbtst
	InsIcbi
	InsEieio
	InsIsync
	InsSync

	// Kernel call
	InsKc
)

// DecodeID resolves the full InstructionID for dispatch from a decoded
// Instruction, switching on primary opcode and (where the primary
// opcode is shared by a family) the secondary opcode field.
func DecodeID(in Instruction) InstructionID {
	switch in.OPCD {
	case 2:
		return InsTdi(in)
	case 3:
		return InsInvalid // twi, not modeled
	case 1:
		return InsKc
	case 7:
		return InsMulli
	case 8:
		return InsSubfic
	case 10:
		return InsCmpli
	case 11:
		return InsCmpi
	case 12:
		return InsAddic
	case 13:
		return InsAddicDot
	case 14:
		return InsAddi
	case 15:
		return InsAddis
	case 16:
		return InsBc
	case 17:
		return InsSc
	case 18:
		return InsB
	case 19:
		return decodeGroup19(in)
	case 20:
		return InsRlwimi
	case 21:
		return InsRlwinm
	case 23:
		return InsRlwnm
	case 24:
		return InsOri
	case 25:
		return InsOris
	case 26:
		return InsXori
	case 27:
		return InsXoris
	case 28:
		return InsAndiDot
	case 29:
		return InsAndisDot
	case 31:
		return decodeGroup31(in)
	case 32:
		return InsLwz
	case 33:
		return InsLwzu
	case 34:
		return InsLbz
	case 35:
		return InsLbzu
	case 36:
		return InsStw
	case 37:
		return InsStwu
	case 38:
		return InsStb
	case 39:
		return InsStbu
	case 40:
		return InsLhz
	case 41:
		return InsLhzu
	case 42:
		return InsLha
	case 43:
		return InsLhau
	case 44:
		return InsSth
	case 45:
		return InsSthu
	case 46:
		return InsLmw
	case 47:
		return InsStmw
	case 48:
		return InsLfs
	case 49:
		return InsLfsu
	case 50:
		return InsLfd
	case 51:
		return InsLfdu
	case 52:
		return InsStfs
	case 53:
		return InsStfsu
	case 54:
		return InsStfd
	case 55:
		return InsStfdu
	case 56:
		return InsPsqL
	case 57:
		return InsPsqLu
	case 59:
		return decodeGroup59(in)
	case 60:
		return InsPsqSt
	case 61:
		return InsPsqStu
	case 63:
		return decodeGroup63(in)
	case 4:
		return decodeGroup4(in)
	}
	return InsInvalid
}

// InsTdi is not a real instruction translation; tdi/twi traps are not
// modeled (this core never delivers privileged exceptions), so
// decoding one is simply invalid here.
func InsTdi(in Instruction) InstructionID { return InsInvalid }

func decodeGroup19(in Instruction) InstructionID {
	switch in.XO {
	case 0:
		return InsMcrf
	case 16:
		return InsBclr
	case 33:
		return InsCrnor
	case 50:
		return InsRfi
	case 129:
		return InsCrandc
	case 150:
		return InsIsync
	case 193:
		return InsCrxor
	case 225:
		return InsCrnand
	case 257:
		return InsCrand
	case 289:
		return InsCreqv
	case 417:
		return InsCrorc
	case 449:
		return InsCror
	case 528:
		return InsBcctr
	}
	return InsInvalid
}

// InsRfi is decoded but never wired to a handler: privileged exception
// return is not modeled.
const InsRfi = InsInvalid

func decodeGroup31(in Instruction) InstructionID {
	switch in.XO {
	case 0:
		return InsCmp
	case 4:
		return InsTdi(in)
	case 8:
		return InsSubfc
	case 10:
		return InsAddc
	case 11:
		return InsMulhwu
	case 19:
		return InsMfcr
	case 20:
		return InsLwarx
	case 23:
		return InsLwzx
	case 24:
		return InsSlw
	case 26:
		return InsCntlzw
	case 28:
		return InsAnd
	case 32:
		return InsCmpl
	case 40:
		return InsSubf
	case 54:
		return InsDcbst
	case 55:
		return InsLwzux
	case 60:
		return InsAndc
	case 75:
		return InsMulhw
	case 86:
		return InsDcbf
	case 87:
		return InsLbzx
	case 104:
		return InsNeg
	case 119:
		return InsLbzux
	case 124:
		return InsNor
	case 136:
		return InsSubfe
	case 138:
		return InsAdde
	case 144:
		return InsMtcrf
	case 150:
		return InsStwcxDot
	case 151:
		return InsStwx
	case 183:
		return InsStwux
	case 200:
		return InsSubfze
	case 202:
		return InsAddze
	case 210:
		return InsMtsr
	case 215:
		return InsStbx
	case 232:
		return InsSubfme
	case 233:
		return InsMullw
	case 234:
		return InsAddme
	case 242:
		return InsMtsrin
	case 247:
		return InsStbux
	case 266:
		return InsAdd
	case 278:
		return InsDcbt
	case 279:
		return InsLhzx
	case 284:
		return InsEqv
	case 310:
		return InsLhzux
	case 316:
		return InsXor
	case 339:
		return InsMfspr
	case 341:
		return InsLwax
	case 343:
		return InsLhax
	case 370:
		return InsTlbia
	case 371:
		return InsMftb
	case 375:
		return InsLhaux
	case 407:
		return InsSthx
	case 412:
		return InsOrc
	case 413:
		return InsSradi
	case 438:
		return InsEcowx
	case 439:
		return InsSthux
	case 444:
		return InsOr
	case 457:
		return InsDivwu
	case 467:
		return InsMtspr
	case 470:
		return InsDcbi
	case 476:
		return InsNand
	case 491:
		return InsDivw
	case 512:
		return InsMcrxr
	case 533:
		return InsLswx
	case 534:
		return InsLwbrx
	case 535:
		return InsLfsx
	case 536:
		return InsSrw
	case 566:
		return InsTlbsync
	case 567:
		return InsLfsux
	case 595:
		return InsMfsr
	case 597:
		return InsLswi
	case 598:
		return InsSync
	case 599:
		return InsLfdx
	case 631:
		return InsLfdux
	case 659:
		return InsMfsrin
	case 661:
		return InsStswx
	case 662:
		return InsStwbrx
	case 663:
		return InsStfsx
	case 695:
		return InsStfsux
	case 725:
		return InsStswi
	case 727:
		return InsStfdx
	case 759:
		return InsStfdux
	case 790:
		return InsLhbrx
	case 792:
		return InsSraw
	case 824:
		return InsSrawi
	case 854:
		return InsEieio
	case 918:
		return InsSthbrx
	case 922:
		return InsExtsh
	case 954:
		return InsExtsb
	case 982:
		return InsIcbi
	case 983:
		return InsStfiwx
	case 1014:
		return InsDcbz
	}
	return InsInvalid
}

// The following XO-form instructions (TLB management, a 64-bit-only
// shift, and external-control bus cycles) decode but are not modeled:
// MMU/BAT state is storage-only and never interpreted by this core.
const (
	InsLwax    = InsInvalid
	InsTlbia   = InsInvalid
	InsSradi   = InsInvalid
	InsEcowx   = InsInvalid
	InsTlbsync = InsInvalid
)

func decodeGroup59(in Instruction) InstructionID {
	switch in.XO5 {
	case 18:
		return InsFdivs
	case 20:
		return InsFsubs
	case 21:
		return InsFadds
	case 24:
		return InsFres
	case 25:
		return InsFmuls
	case 28:
		return InsFmsubs
	case 29:
		return InsFmadds
	case 30:
		return InsFnmsubs
	case 31:
		return InsFnmadds
	}
	return InsInvalid
}

func decodeGroup63(in Instruction) InstructionID {
	switch in.XO {
	case 0:
		return InsFcmpu
	case 12:
		return InsFrsp
	case 14:
		return InsFctiw
	case 15:
		return InsFctiwz
	case 32:
		return InsFcmpo
	case 38:
		return InsMtfsb1
	case 64:
		return InsMcrfs
	case 70:
		return InsMtfsb0
	case 72:
		return InsFmr
	case 134:
		return InsMtfsfi
	case 136:
		return InsFnabs
	case 264:
		return InsFabs
	case 583:
		return InsMffs
	case 711:
		return InsMtfsf
	}
	switch in.XO5 {
	case 18:
		return InsFdiv
	case 20:
		return InsFsub
	case 21:
		return InsFadd
	case 23:
		return InsFsel
	case 25:
		return InsFmul
	case 26:
		return InsFrsqrte
	case 28:
		return InsFmsub
	case 29:
		return InsFmadd
	case 30:
		return InsFnmsub
	case 31:
		return InsFnmadd
	}
	switch bits(in.Raw, 21, 10) {
	case 40:
		return InsFneg
	}
	return InsInvalid
}

// decodeGroup4 splits on two different opcode-field widths. The A-form
// paired-single ops (sum/muls/madds/div/sub/add/sel/res/mul/rsqrte/
// msub/madd/nmsub/nmadd) carry a genuine frC register in bits 21-25,
// so they must be identified by the 5-bit secondary opcode (XO5,
// bits 26-30) alone; switching on the full 10-bit field would fold
// frC's register number into the opcode match. The X-form ops
// (compares, merge/mr/neg/abs/nabs) have no frC operand, so their
// full 10-bit XO is the real extended opcode. psq_lx/lux/stx/stux
// carry W and I in bits 21-24, so only bits 25-30 identify them.
// dcbz_l (XO 1014, which shares this primary opcode on Gekko/Broadway)
// is matched before the A-form switch, whose ps_sel case has the same
// low five XO bits.
func decodeGroup4(in Instruction) InstructionID {
	if in.XO == 1014 {
		return InsDcbzL
	}
	switch in.XO5 {
	case 10:
		return InsPsSum0
	case 11:
		return InsPsSum1
	case 12:
		return InsPsMuls0
	case 13:
		return InsPsMuls1
	case 14:
		return InsPsMadds0
	case 15:
		return InsPsMadds1
	case 18:
		return InsPsDiv
	case 20:
		return InsPsSub
	case 21:
		return InsPsAdd
	case 22:
		return InsPsSel
	case 24:
		return InsPsRes
	case 25:
		return InsPsMul
	case 26:
		return InsPsRsqrte
	case 28:
		return InsPsMsub
	case 29:
		return InsPsMadd
	case 30:
		return InsPsNmsub
	case 31:
		return InsPsNmadd
	}
	if xo6 := bits(in.Raw, 25, 6); xo6 == 6 || xo6 == 23 || xo6 == 38 || xo6 == 39 {
		in.XO = xo6
	}
	switch in.XO {
	case 0:
		return InsPsCmpu0
	case 6:
		return InsPsqLx
	case 23:
		return InsPsqLux
	case 32:
		return InsPsCmpo0
	case 38:
		return InsPsqStx
	case 39:
		return InsPsqStux
	case 40:
		return InsPsNeg
	case 64:
		return InsPsCmpu1
	case 72:
		return InsPsMr
	case 96:
		return InsPsCmpo1
	case 136:
		return InsPsNabs
	case 264:
		return InsPsAbs
	case 528:
		return InsPsMerge00
	case 560:
		return InsPsMerge01
	case 592:
		return InsPsMerge10
	case 624:
		return InsPsMerge11
	}
	return InsInvalid
}
