package espresso

import "testing"

// aform assembles an A-form floating-point word: primary opcode,
// frd/frs, fra, frb, frc, 5-bit secondary opcode, Rc.
func aform(op, frd, fra, frb, frc, xo5 uint32, rc bool) uint32 {
	w := (op&0x3F)<<26 | (frd&0x1F)<<21 | (fra&0x1F)<<16 | (frb&0x1F)<<11 | (frc&0x1F)<<6 | (xo5&0x1F)<<1
	if rc {
		w |= 1
	}
	return w
}

func TestExecFaddDoublePrecision(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(1.5)
	c.FPR[2].SetValue(2.25)
	c.loadAt(0x1000, aform(63, 3, 1, 2, 0, 21, false)) // fadd f3, f1, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[3].Value(); got != 3.75 {
		t.Fatalf("f3 = %v, want 3.75", got)
	}
}

func TestExecFmulsNarrowsToSingle(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(2.0)
	c.FPR[2].SetValue(3.0)
	c.loadAt(0x1000, aform(59, 3, 1, 0, 2, 25, false)) // fmuls f3, f1, f2 (f2 in the frC slot)
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[3].Paired0(); got != 6.0 {
		t.Fatalf("f3 ps0 = %v, want 6.0", got)
	}
}

func TestExecFabsClearsSignBit(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(-7.0)
	c.loadAt(0x1000, xform(63, 3, 0, 1, 264, false)) // fabs f3, f1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[3].Value(); got != 7.0 {
		t.Fatalf("f3 = %v, want 7.0", got)
	}
}

func TestExecFnegFlipsSignBit(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(4.0)
	c.loadAt(0x1000, xform(63, 3, 0, 1, 40, false)) // fneg f3, f1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[3].Value(); got != -4.0 {
		t.Fatalf("f3 = %v, want -4.0", got)
	}
}

func TestExecFrspRoundsToSingle(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(1.0 / 3.0)
	c.loadAt(0x1000, xform(63, 3, 0, 1, 12, false)) // frsp f3, f1
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := float64(float32(1.0 / 3.0))
	if got := c.FPR[3].Paired0(); got != want {
		t.Fatalf("f3 ps0 = %v, want %v (single-precision rounded)", got, want)
	}
}

func TestExecFcmpuSetsCRField(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(1.0)
	c.FPR[2].SetValue(2.0)
	c.loadAt(0x1000, xform(63, 0<<2, 1, 2, 0, false)) // fcmpu cr0, f1, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.CR.Field(0) != uint32(CRLessThan) {
		t.Fatalf("cr0 = 0x%x, want CRLessThan (1.0 < 2.0)", c.CR.Field(0))
	}
}

func TestExecMtfsbSetsFPSCRBit(t *testing.T) {
	c := newTestCore()
	// mtfsb1 targets an FPSCR bit numbered MSB-first like the CR; bit 3
	// is OX. crbd-shaped field lives at bits 6-10 of X-form (rd/5 here
	// holds the bit number directly).
	c.loadAt(0x1000, xform(63, 3, 0, 0, 38, false)) // mtfsb1 bt=3
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !c.FPSCR.bit(31 - 3) {
		t.Fatal("mtfsb1 3 should have set FPSCR bit 3 (OX)")
	}
}
