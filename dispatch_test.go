package espresso

import "testing"

// dform assembles a D-form word: primary opcode, rd/rs field, ra field,
// 16-bit immediate/displacement.
func dform(op, rd, ra, imm16 uint32) uint32 {
	return (op&0x3F)<<26 | (rd&0x1F)<<21 | (ra&0x1F)<<16 | (imm16 & 0xFFFF)
}

// xform assembles an X-form word: primary opcode, rd/rs, ra, rb, 10-bit
// extended opcode, Rc bit.
func xform(op, rd, ra, rb, xo uint32, rc bool) uint32 {
	w := (op&0x3F)<<26 | (rd&0x1F)<<21 | (ra&0x1F)<<16 | (rb&0x1F)<<11 | (xo&0x3FF)<<1
	if rc {
		w |= 1
	}
	return w
}

// iform assembles an I-form (unconditional branch) word.
func iform(op uint32, li int32, aa, lk bool) uint32 {
	w := (op&0x3F)<<26 | (uint32(li)&0x00FFFFFF)<<2
	if aa {
		w |= 1 << 1
	}
	if lk {
		w |= 1
	}
	return w
}

// bform assembles a B-form (branch conditional) word.
func bform(op, bo, bi uint32, bd int32, aa, lk bool) uint32 {
	w := (op&0x3F)<<26 | (bo&0x1F)<<21 | (bi&0x1F)<<16 | (uint32(bd)&0x3FFF)<<2
	if aa {
		w |= 1 << 1
	}
	if lk {
		w |= 1
	}
	return w
}

func newTestCore() *Core {
	mem := NewFlatGuestMemory(0x10000)
	return NewCore(mem)
}

// loadAt writes word at addr and points cia/nia at it, ready for Step.
func (c *Core) loadAt(addr, word uint32) {
	c.Memory.WriteU32(addr, word)
	c.NIA = addr
}

func TestStepAdvancesCIANIA(t *testing.T) {
	c := newTestCore()
	c.GPR[1] = 10
	c.GPR[2] = 5
	c.loadAt(0x1000, xform(31, 3, 1, 2, 266, false)) // add r3, r1, r2
	if err := c.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if c.CIA != 0x1000 {
		t.Fatalf("cia = 0x%x, want 0x1000", c.CIA)
	}
	if c.NIA != 0x1004 {
		t.Fatalf("nia = 0x%x, want 0x1004", c.NIA)
	}
	if c.GPR[3] != 15 {
		t.Fatalf("r3 = %d, want 15", c.GPR[3])
	}
}

func TestStepFaultsOnUnimplementedOpcode(t *testing.T) {
	c := newTestCore()
	c.loadAt(0x1000, dform(3, 0, 0, 0)) // twi, not modeled -> InsInvalid
	err := c.Step()
	if err == nil {
		t.Fatal("expected a fault for an unimplemented opcode")
	}
	if c.Fault == nil {
		t.Fatal("Core.Fault should be set after a faulting Step")
	}
	// Core refuses to execute further once faulted.
	again := c.Step()
	if again != err {
		t.Fatalf("second Step() = %v, want the same cached fault %v", again, err)
	}
}

func TestStepFaultsWhenHandlerMutatesCIA(t *testing.T) {
	c := newTestCore()
	id := InsAdd
	saved := handlers[id]
	handlers[id] = func(c *Core, in Instruction) { c.CIA++ }
	defer func() { handlers[id] = saved }()

	c.loadAt(0x2000, xform(31, 3, 1, 2, 266, false))
	err := c.Step()
	if err == nil {
		t.Fatal("expected a fault when a handler mutates cia")
	}
}

func TestResumeRunsUntilCallbackAddr(t *testing.T) {
	c := newTestCore()
	c.GPR[1] = 1
	c.Memory.WriteU32(0x1000, dform(14, 1, 1, 1)) // addi r1, r1, 1
	c.Memory.WriteU32(0x1004, dform(14, 1, 1, 1)) // addi r1, r1, 1
	c.NIA = 0x1000
	// Third instruction branches to the sentinel callback address.
	c.Memory.WriteU32(0x1008, iform(18, int32(CallbackAddr>>2), true, false))

	if err := c.Resume(nil); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if c.GPR[1] != 3 {
		t.Fatalf("r1 = %d, want 3", c.GPR[1])
	}
	if c.NIA != CallbackAddr {
		t.Fatalf("nia = 0x%x, want CallbackAddr", c.NIA)
	}
}

func TestResumeServicesInterrupt(t *testing.T) {
	c := newTestCore()
	c.Memory.WriteU32(0x1000, iform(18, int32(CallbackAddr>>2), true, false))
	c.NIA = 0x1000
	c.Interrupt.Store(true)

	serviced := false
	err := c.Resume(func(cc *Core) {
		serviced = true
		cc.Interrupt.Store(false)
	})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !serviced {
		t.Fatal("interrupt check was never invoked")
	}
}

func TestHandlerTableCoversEveryDecodableID(t *testing.T) {
	for id := InsInvalid + 1; id <= InsKc; id++ {
		if handlers[id] == nil {
			t.Errorf("InstructionID %d has no registered handler", id)
		}
	}
}
