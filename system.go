// system.go - SPR/time-base/MSR/segment-register access, the cache
// management no-ops, dcbz/dcbz_l, and the bridge-call opcode.
//
// License: GPLv3 or later

package espresso

import "log"

// Real Gekko/Broadway SPR numbers for the registers this core models.
// Everything else is storage-only or unsupported; mfspr/mtspr log and
// leave the destination register (or the SPR) untouched rather than
// faulting the core.
const (
	sprXER   = 1
	sprLR    = 8
	sprCTR   = 9
	sprUGQR0 = 912
	sprUGQR7 = 919
)

func execMfspr(c *Core, in Instruction) {
	var value uint32
	switch {
	case in.SPR == sprXER:
		value = c.XER.Value
	case in.SPR == sprLR:
		value = c.LR
	case in.SPR == sprCTR:
		value = c.CTR
	case in.SPR >= sprUGQR0 && in.SPR <= sprUGQR7:
		value = c.GQR[in.SPR-sprUGQR0].Value
	default:
		log.Printf("espresso: mfspr: unsupported SPR %d", in.SPR)
	}
	c.GPR[in.RD] = value
}

func execMtspr(c *Core, in Instruction) {
	value := c.GPR[in.RS]
	switch {
	case in.SPR == sprXER:
		c.XER.Value = value
	case in.SPR == sprLR:
		c.LR = value
	case in.SPR == sprCTR:
		c.CTR = value
	case in.SPR >= sprUGQR0 && in.SPR <= sprUGQR7:
		c.GQR[in.SPR-sprUGQR0].Value = value
	default:
		log.Printf("espresso: mtspr: unsupported SPR %d", in.SPR)
	}
}

// Time base SPR numbers, read via mftb rather than mfspr.
const (
	sprTBL = 268
	sprTBU = 269
)

func execMftb(c *Core, in Instruction) {
	var value uint32
	switch in.TBR {
	case sprTBL:
		value = c.TBL
	case sprTBU:
		value = c.TBU
	default:
		log.Printf("espresso: mftb: unsupported TBR %d", in.TBR)
	}
	c.GPR[in.RD] = value
}

func execMfmsr(c *Core, in Instruction) { c.GPR[in.RD] = c.MSR }
func execMtmsr(c *Core, in Instruction) { c.MSR = c.GPR[in.RS] }

// The segment register index occupies the low 4 bits of the 5-bit RA
// field in mfsr/mtsr's encoding (bit 11 is reserved and always zero);
// mfsrin/mtsrin instead take it from the low 4 bits of rB.
func execMfsr(c *Core, in Instruction) { c.GPR[in.RD] = c.SR[in.RA&0xF] }
func execMtsr(c *Core, in Instruction) { c.SR[in.RA&0xF] = c.GPR[in.RS] }

func execMfsrin(c *Core, in Instruction) {
	sr := c.GPR[in.RB] & 0xF
	c.GPR[in.RD] = c.SR[sr]
}

func execMtsrin(c *Core, in Instruction) {
	sr := c.GPR[in.RB] & 0xF
	c.SR[sr] = c.GPR[in.RS]
}

// Cache management is modeled as a functional no-op: this core has no
// cache-timing simulation, so every one of these merely needs to
// decode cleanly and fall through.
func execIcbi(c *Core, in Instruction)   {}
func execDcbf(c *Core, in Instruction)   {}
func execDcbi(c *Core, in Instruction)   {}
func execDcbst(c *Core, in Instruction)  {}
func execDcbt(c *Core, in Instruction)   {}
func execDcbtst(c *Core, in Instruction) {}
func execEieio(c *Core, in Instruction)  {}
func execSync(c *Core, in Instruction)   {}
func execIsync(c *Core, in Instruction)  {}

func dcbzAddr(c *Core, in Instruction) uint32 {
	var addr uint32
	if in.RA != 0 {
		addr = c.GPR[in.RA]
	}
	return addr + c.GPR[in.RB]
}

func execDcbz(c *Core, in Instruction)  { c.Memory.ZeroCacheBlock(dcbzAddr(c, in)) }
func execDcbzL(c *Core, in Instruction) { c.Memory.ZeroCacheBlock(dcbzAddr(c, in)) }

// execKc implements the bridge-call opcode: look up the registered
// host handler by its embedded 24-bit id and transfer control to it.
// A handler may reassign c.CoreIndex to move this goroutine's guest
// thread onto a different logical core; the dispatch loop detects
// that by re-reading CoreIndex after this call returns.
func execKc(c *Core, in Instruction) {
	if c.KernelCalls == nil {
		c.Fault = &FaultError{CIA: c.CIA, Reason: "bridge-call opcode with no kernel call table installed"}
		return
	}
	handler, ok := c.KernelCalls.Lookup(in.KCN)
	if !ok {
		c.Fault = &FaultError{CIA: c.CIA, Reason: "invalid kernel call id"}
		return
	}
	handler(c)
}

func registerSystemInstructions() {
	registerHandler(InsMfspr, execMfspr)
	registerHandler(InsMtspr, execMtspr)
	registerHandler(InsMftb, execMftb)
	registerHandler(InsMfmsr, execMfmsr)
	registerHandler(InsMtmsr, execMtmsr)
	registerHandler(InsMfsr, execMfsr)
	registerHandler(InsMtsr, execMtsr)
	registerHandler(InsMfsrin, execMfsrin)
	registerHandler(InsMtsrin, execMtsrin)
	registerHandler(InsIcbi, execIcbi)
	registerHandler(InsDcbf, execDcbf)
	registerHandler(InsDcbi, execDcbi)
	registerHandler(InsDcbst, execDcbst)
	registerHandler(InsDcbt, execDcbt)
	registerHandler(InsDcbtst, execDcbtst)
	registerHandler(InsDcbz, execDcbz)
	registerHandler(InsDcbzL, execDcbzL)
	registerHandler(InsEieio, execEieio)
	registerHandler(InsSync, execSync)
	registerHandler(InsIsync, execIsync)
	registerHandler(InsKc, execKc)
}
