package espresso

import "testing"

func TestExecFmaddComputesFusedProduct(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(2.0) // fra
	c.FPR[2].SetValue(10.0) // frb (addend)
	c.FPR[3].SetValue(3.0) // frc (second multiplicand)
	c.loadAt(0x1000, aform(63, 4, 1, 2, 3, 29, false)) // fmadd f4, f1, f3, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[4].Value(); got != 16.0 {
		t.Fatalf("f4 = %v, want 16.0 (2*3 + 10)", got)
	}
}

func TestExecFmsubSubtractsAddend(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(2.0)
	c.FPR[2].SetValue(1.0)
	c.FPR[3].SetValue(3.0)
	c.loadAt(0x1000, aform(63, 4, 1, 2, 3, 28, false)) // fmsub f4, f1, f3, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[4].Value(); got != 5.0 {
		t.Fatalf("f4 = %v, want 5.0 (2*3 - 1)", got)
	}
}

func TestExecFnmaddNegatesResult(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(2.0)
	c.FPR[2].SetValue(10.0)
	c.FPR[3].SetValue(3.0)
	c.loadAt(0x1000, aform(63, 4, 1, 2, 3, 31, false)) // fnmadd f4, f1, f3, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := c.FPR[4].Value(); got != -16.0 {
		t.Fatalf("f4 = %v, want -16.0 (-(2*3 + 10))", got)
	}
}

func TestExecFmaddsNarrowsToSingle(t *testing.T) {
	c := newTestCore()
	c.FPR[1].SetValue(1.0 / 3.0)
	c.FPR[2].SetValue(0.0)
	c.FPR[3].SetValue(1.0)
	c.loadAt(0x1000, aform(59, 4, 1, 2, 3, 29, false)) // fmadds f4, f1, f3, f2
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := float64(float32(1.0 / 3.0))
	if got := c.FPR[4].Paired0(); got != want {
		t.Fatalf("f4 ps0 = %v, want %v (single-precision rounded)", got, want)
	}
}
