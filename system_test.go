package espresso

import "testing"

// sprWord builds an mfspr/mtspr word: the SPR number is split across
// two 5-bit instruction fields and recombined by Decode, so the
// caller passes spr pre-split into those two halves via Decode's own
// convention (hi = spr&0x1F, lo = spr>>5).
func sprWord(op, rd, xo, spr uint32, rc bool) uint32 {
	hi := spr & 0x1F
	lo := (spr >> 5) & 0x1F
	return xform(op, rd, hi, lo, xo, rc)
}

func TestExecMtsprMfsprLR(t *testing.T) {
	c := newTestCore()
	c.GPR[1] = 0xABCD1234
	c.loadAt(0x1000, sprWord(31, 1, 467, sprLR, false)) // mtspr LR, r1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.LR != 0xABCD1234 {
		t.Fatalf("lr = 0x%08x, want 0xABCD1234", c.LR)
	}

	c.loadAt(0x1004, sprWord(31, 2, 339, sprLR, false)) // mfspr r2, LR
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GPR[2] != 0xABCD1234 {
		t.Fatalf("r2 = 0x%08x, want 0xABCD1234", c.GPR[2])
	}
}

func TestExecMtsprUGQR(t *testing.T) {
	c := newTestCore()
	c.GPR[1] = uint32(QuantizedSigned16) | (10 << 8)
	c.loadAt(0x1000, sprWord(31, 1, 467, sprUGQR0+3, false)) // mtspr UGQR3, r1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GQR[3].LoadType() != QuantizedSigned16 {
		t.Fatalf("GQR[3].LoadType() = %v, want QuantizedSigned16", c.GQR[3].LoadType())
	}
}

func TestExecMfsprUnsupportedSPRDoesNotFault(t *testing.T) {
	c := newTestCore()
	c.loadAt(0x1000, sprWord(31, 3, 339, 999, false)) // mfspr r3, SPR 999 (unsupported)
	if err := c.Step(); err != nil {
		t.Fatalf("an unsupported SPR should log, not fault: %v", err)
	}
	if c.Fault != nil {
		t.Fatal("unsupported SPR must not set Core.Fault")
	}
}

func TestExecMftbReadsTimeBase(t *testing.T) {
	c := newTestCore()
	c.TBL = 0x11111111
	c.TBU = 0x22222222
	c.loadAt(0x1000, sprWord(31, 3, 371, sprTBL, false)) // mftb r3, TBL
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GPR[3] != 0x11111111 {
		t.Fatalf("r3 = 0x%08x, want TBL 0x11111111", c.GPR[3])
	}
}

func TestExecMfsrMtsr(t *testing.T) {
	c := newTestCore()
	c.GPR[1] = 0xDEADBEEF
	c.loadAt(0x1000, xform(31, 1, 5, 0, 210, false)) // mtsr sr5, r1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.SR[5] != 0xDEADBEEF {
		t.Fatalf("SR[5] = 0x%08x, want 0xDEADBEEF", c.SR[5])
	}

	c.loadAt(0x1004, xform(31, 2, 5, 0, 595, false)) // mfsr r2, sr5
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GPR[2] != 0xDEADBEEF {
		t.Fatalf("r2 = 0x%08x, want 0xDEADBEEF", c.GPR[2])
	}
}

func TestExecMfsrinIndexComesFromGPR(t *testing.T) {
	c := newTestCore()
	c.SR[9] = 0xCAFE0000
	c.GPR[2] = 0x19 // low 4 bits select SR 9
	c.loadAt(0x1000, xform(31, 3, 0, 2, 659, false)) // mfsrin r3, r2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GPR[3] != 0xCAFE0000 {
		t.Fatalf("r3 = 0x%08x, want 0xCAFE0000", c.GPR[3])
	}
}

func TestExecDcbzZeroesAlignedBlock(t *testing.T) {
	c := newTestCore()
	for i := uint32(0); i < 64; i++ {
		c.Memory.WriteU8(i, 0xFF)
	}
	c.GPR[1] = 0
	c.GPR[2] = 40 // unaligned address, should zero the block it falls in
	c.loadAt(0x1000, xform(31, 0, 1, 2, 1014, false)) // dcbz r1, r2 (base r1 = 0)
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	for i := uint32(32); i < 64; i++ {
		if c.Memory.ReadU8(i) != 0 {
			t.Fatalf("byte %d not zeroed by dcbz", i)
		}
	}
}

func TestExecDcbzLZeroesAlignedBlock(t *testing.T) {
	c := newTestCore()
	for i := uint32(0); i < 64; i++ {
		c.Memory.WriteU8(i, 0xFF)
	}
	c.GPR[1] = 0
	c.GPR[2] = 40 // unaligned address, should zero the block it falls in
	c.loadAt(0x1000, xform(4, 0, 1, 2, 1014, false)) // dcbz_l r1, r2 (base r1 = 0)
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	for i := uint32(32); i < 64; i++ {
		if c.Memory.ReadU8(i) != 0 {
			t.Fatalf("byte %d not zeroed by dcbz_l", i)
		}
	}
	for i := uint32(0); i < 32; i++ {
		if c.Memory.ReadU8(i) != 0xFF {
			t.Fatalf("byte %d outside the target block was touched by dcbz_l", i)
		}
	}
}

func TestExecKcFaultsWithoutTable(t *testing.T) {
	c := newTestCore()
	c.loadAt(0x1000, dform(1, 0, 0, 0)) // bridge-call opcode, no KernelCalls installed
	if err := c.Step(); err == nil {
		t.Fatal("bridge-call with no kernel call table should fault")
	}
}

func TestExecKcFaultsOnUnregisteredID(t *testing.T) {
	c := newTestCore()
	c.KernelCalls = NewKernelCallTable()
	c.loadAt(0x1000, dform(1, 0, 0, 0))
	if err := c.Step(); err == nil {
		t.Fatal("bridge-call to an unregistered id should fault")
	}
}

func TestExecKcDispatchesRegisteredHandler(t *testing.T) {
	c := newTestCore()
	c.KernelCalls = NewKernelCallTable()
	called := false
	c.KernelCalls.RegisterFunc(0, func(cc *Core) { called = true; cc.GPR[3] = 42 })
	c.loadAt(0x1000, dform(1, 0, 0, 0)) // kcn field = bits 6-29 = 0
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !called {
		t.Fatal("registered kernel call handler was never invoked")
	}
	if c.GPR[3] != 42 {
		t.Fatalf("r3 = %d, want 42", c.GPR[3])
	}
}

func TestCacheNoOpsLeaveMemoryUntouched(t *testing.T) {
	c := newTestCore()
	c.Memory.WriteU32(0x40, 0xAABBCCDD)
	c.GPR[1], c.GPR[2] = 0, 0x40
	for _, xo := range []uint32{982 /* icbi */, 86 /* dcbf */, 470 /* dcbi */, 54 /* dcbst */, 278 /* dcbt */} {
		c.loadAt(0x1000, xform(31, 0, 1, 2, xo, false))
		if err := c.Step(); err != nil {
			t.Fatalf("Step (xo=%d): %v", xo, err)
		}
	}
	if got := c.Memory.ReadU32(0x40); got != 0xAABBCCDD {
		t.Fatalf("cache no-op mutated memory: got 0x%08x", got)
	}
}
