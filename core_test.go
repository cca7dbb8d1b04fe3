package espresso

import "testing"

func TestCRFieldRoundTrip(t *testing.T) {
	var cr CR
	cr.SetField(0, 0xA)
	if got := cr.Field(0); got != 0xA {
		t.Fatalf("cr0 = 0x%x, want 0xA", got)
	}
	cr.SetField(7, 0x5)
	if got := cr.Field(7); got != 0x5 {
		t.Fatalf("cr7 = 0x%x, want 0x5", got)
	}
	// Setting cr7 must not disturb cr0.
	if got := cr.Field(0); got != 0xA {
		t.Fatalf("cr0 = 0x%x after setting cr7, want unchanged 0xA", got)
	}
}

func TestCRBitAddressing(t *testing.T) {
	var cr CR
	cr.SetBit(0, 1) // top bit of cr0
	if cr.Value != 0x80000000 {
		t.Fatalf("cr.Value = 0x%08x, want 0x80000000", cr.Value)
	}
	cr.SetBit(31, 1) // bottom bit of cr7
	if cr.Value != 0x80000001 {
		t.Fatalf("cr.Value = 0x%08x, want 0x80000001", cr.Value)
	}
	cr.SetBit(0, 0)
	if cr.Bit(0) != 0 {
		t.Fatal("cr bit 0 should have cleared")
	}
}

func TestXERCarryOverflowSticky(t *testing.T) {
	var x XER
	x.SetCA(true)
	if !x.CA() {
		t.Fatal("CA should be set")
	}
	x.SetOV(true)
	x.SetSO(true)
	if x.CRXR() != 0xE {
		t.Fatalf("CRXR() = 0x%x, want 0xE (SO|OV|CA)", x.CRXR())
	}
}

func TestXERByteCount(t *testing.T) {
	var x XER
	x.SetByteCount(0x7F)
	if x.ByteCount() != 0x7F {
		t.Fatalf("ByteCount() = %d, want 127", x.ByteCount())
	}
	// Byte count must not leak into SO/OV/CA.
	if x.SO() || x.OV() || x.CA() {
		t.Fatal("setting byte count disturbed the sticky flag bits")
	}
}

func TestFPRViewsAlias(t *testing.T) {
	var f FPR
	f.SetValue(3.5)
	if f.Value() != 3.5 {
		t.Fatalf("Value() = %v, want 3.5", f.Value())
	}
	f.SetIDW(0)
	f.SetPaired0(1.0)
	f.SetPaired1(2.0)
	if f.Paired0() != 1.0 {
		t.Fatalf("Paired0() = %v, want 1.0", f.Paired0())
	}
	if f.Paired1() != 2.0 {
		t.Fatalf("Paired1() = %v, want 2.0", f.Paired1())
	}
	// SetPaired0 must leave ps1 (the low word) untouched.
	f.SetPaired0(9.0)
	if f.Paired1() != 2.0 {
		t.Fatalf("Paired1() = %v after SetPaired0, want unchanged 2.0", f.Paired1())
	}
}

func TestGQREncoding(t *testing.T) {
	var g GQR
	g.Value = uint32(QuantizedSigned16) | (12 << 8) | (uint32(QuantizedUnsigned8) << 16) | (5 << 24)
	if g.LoadType() != QuantizedSigned16 {
		t.Fatalf("LoadType() = %v, want QuantizedSigned16", g.LoadType())
	}
	if g.LoadScale() != 12 {
		t.Fatalf("LoadScale() = %d, want 12", g.LoadScale())
	}
	if g.StoreType() != QuantizedUnsigned8 {
		t.Fatalf("StoreType() = %v, want QuantizedUnsigned8", g.StoreType())
	}
	if g.StoreScale() != 5 {
		t.Fatalf("StoreScale() = %d, want 5", g.StoreScale())
	}
}

func TestNewCoreStartsRunning(t *testing.T) {
	mem := NewFlatGuestMemory(0x1000)
	c := NewCore(mem)
	if !c.Running {
		t.Fatal("NewCore should start Running")
	}
	if c.Fault != nil {
		t.Fatal("NewCore should start without a fault")
	}
	if c.Memory != mem {
		t.Fatal("NewCore should retain the given GuestMemory")
	}
}

func TestBitmask32Wraps(t *testing.T) {
	// mb > me wraps around bit 31 back to bit 0, PowerPC's rotate-mask
	// convention.
	mask := bitmask32(30, 1)
	want := uint32(0xC0000003)
	if mask != want {
		t.Fatalf("bitmask32(30, 1) = 0x%08x, want 0x%08x", mask, want)
	}
	mask = bitmask32(0, 31)
	if mask != 0xFFFFFFFF {
		t.Fatalf("bitmask32(0, 31) = 0x%08x, want 0xFFFFFFFF", mask)
	}
}
