// branch.go - branch and branch-conditional family.
//
// License: GPLv3 or later

package espresso

const (
	boOffsetFalse     = 0
	boOffsetTrue      = 1
	boOffsetCtrOk     = 2
	boOffsetCondOk    = 3
)

func (c *Core) bitTest(crBit uint32) bool { return c.CR.Bit(crBit) != 0 }

// branchConditionOk evaluates the "BO" decode table from
// interpreter_branch.cpp's bcGeneric: bit 2 of BO skips the CTR test,
// bit 0 skips the condition test, bit 1 supplies the condition sense.
func branchConditionOk(c *Core, bo, bi uint32) bool {
	ctrOk := true
	if bo&0x04 == 0 {
		c.CTR--
		if bo&0x02 != 0 {
			ctrOk = c.CTR == 0
		} else {
			ctrOk = c.CTR != 0
		}
	}

	condOk := true
	if bo&0x10 == 0 {
		want := bo&0x08 != 0
		condOk = c.bitTest(bi) == want
	}

	return ctrOk && condOk
}

func branchTo(c *Core, target uint32, link bool) {
	if link {
		c.LR = c.CIA + 4
	}
	c.NIA = target
}

func execB(c *Core, in Instruction) {
	var target uint32
	if in.AA {
		target = uint32(in.LI)
	} else {
		target = c.CIA + uint32(in.LI)
	}
	branchTo(c, target, in.LK)
}

func execBc(c *Core, in Instruction) {
	if !branchConditionOk(c, in.BO, in.BI) {
		return
	}
	var target uint32
	if in.AA {
		target = uint32(in.BD)
	} else {
		target = c.CIA + uint32(in.BD)
	}
	branchTo(c, target, in.LK)
}

func execBcctr(c *Core, in Instruction) {
	// bcctr never decrements/tests CTR (bit 2 of BO is forced set by
	// the real encoding); only the condition test applies.
	condOk := true
	if in.BO&0x10 == 0 {
		want := in.BO&0x08 != 0
		condOk = c.bitTest(in.BI) == want
	}
	if !condOk {
		return
	}
	branchTo(c, c.CTR&^3, in.LK)
}

func execBclr(c *Core, in Instruction) {
	if !branchConditionOk(c, in.BO, in.BI) {
		return
	}
	branchTo(c, c.LR&^3, in.LK)
}

// sc (system call) is decoded but not modeled: this core never
// delivers privileged exceptions, so it just halts.
func execSc(c *Core, in Instruction) {
	c.Running = false
}

func registerBranchInstructions() {
	registerHandler(InsB, execB)
	registerHandler(InsBc, execBc)
	registerHandler(InsBcctr, execBcctr)
	registerHandler(InsBclr, execBclr)
	registerHandler(InsSc, execSc)
}
