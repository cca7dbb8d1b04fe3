package espresso

import (
	"math"
	"testing"
)

func TestHostFPUControlOverflowOnlyWhenOperandsFinite(t *testing.T) {
	var fpu HostFPUControl
	if !fpu.Overflow(math.MaxFloat64, math.MaxFloat64, math.Inf(1)) {
		t.Fatal("finite operands producing Inf should report overflow")
	}
	if fpu.Overflow(math.Inf(1), 1.0, math.Inf(1)) {
		t.Fatal("an already-infinite operand should not count as overflow")
	}
}

func TestHostFPUControlUnderflowDouble(t *testing.T) {
	var fpu HostFPUControl
	subnormal := Float64FromBits(1) // smallest positive double, subnormal
	if !fpu.UnderflowDouble(subnormal) {
		t.Fatal("a subnormal double result should report underflow")
	}
	if fpu.UnderflowDouble(1.0) {
		t.Fatal("a normal double result should not report underflow")
	}
}

func TestHostFPUControlUnderflowFloat(t *testing.T) {
	var fpu HostFPUControl
	subnormal := Float32FromBits(1)
	if !fpu.UnderflowFloat(subnormal) {
		t.Fatal("a subnormal single result should report underflow")
	}
	if fpu.UnderflowFloat(1.0) {
		t.Fatal("a normal single result should not report underflow")
	}
}

func TestHostFPUControlInexactNarrow(t *testing.T) {
	var fpu HostFPUControl
	wide := 1.0 / 3.0
	narrow := float32(wide)
	if !fpu.InexactNarrow(wide, narrow) {
		t.Fatal("narrowing 1/3 to single precision loses bits and should report inexact")
	}
	if fpu.InexactNarrow(1.0, float32(1.0)) {
		t.Fatal("narrowing an exactly representable value should not report inexact")
	}
}
