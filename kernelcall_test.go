package espresso

import "testing"

func TestKernelCallTableRegisterFuncLookup(t *testing.T) {
	tbl := NewKernelCallTable()
	called := false
	tbl.RegisterFunc(7, func(c *Core) { called = true })
	fn, ok := tbl.Lookup(7)
	if !ok {
		t.Fatal("Lookup(7) should find the registered func handler")
	}
	fn(newTestCore())
	if !called {
		t.Fatal("looked-up handler was not the one registered")
	}
}

func TestKernelCallTableLookupMissingID(t *testing.T) {
	tbl := NewKernelCallTable()
	if _, ok := tbl.Lookup(99); ok {
		t.Fatal("Lookup of an unregistered id should report false")
	}
}

func TestKernelCallTableRunScriptMutatesGPR(t *testing.T) {
	tbl := NewKernelCallTable()
	tbl.RegisterScript(1, `gpr[3] = gpr[1] + gpr[2]`)
	defer tbl.Close()

	c := newTestCore()
	c.GPR[1] = 10
	c.GPR[2] = 32
	fn, ok := tbl.Lookup(1)
	if !ok {
		t.Fatal("Lookup(1) should find the registered script handler")
	}
	fn(c)
	if c.GPR[3] != 42 {
		t.Fatalf("r3 = %d, want 42", c.GPR[3])
	}
}

func TestKernelCallTableRunScriptErrorFaultsCore(t *testing.T) {
	tbl := NewKernelCallTable()
	tbl.RegisterScript(2, `this is not lua`)
	defer tbl.Close()

	c := newTestCore()
	fn, _ := tbl.Lookup(2)
	fn(c)
	if c.Fault == nil {
		t.Fatal("a script parse/runtime error should set Core.Fault")
	}
}

func TestKernelCallTableScriptStatePerCore(t *testing.T) {
	tbl := NewKernelCallTable()
	tbl.RegisterScript(3, `
		count = (count or 0) + 1
		gpr[3] = count
	`)
	defer tbl.Close()

	c0 := newTestCore()
	c0.CoreIndex = 0
	c1 := newTestCore()
	c1.CoreIndex = 1

	fn, _ := tbl.Lookup(3)
	fn(c0)
	fn(c0)
	fn(c1)

	if c0.GPR[3] != 2 {
		t.Fatalf("core 0 r3 = %d, want 2 (state persists across calls on the same core)", c0.GPR[3])
	}
	if c1.GPR[3] != 1 {
		t.Fatalf("core 1 r3 = %d, want 1 (independent Lua state per core)", c1.GPR[3])
	}
}

func TestExecKcThroughCoreDispatchesToScript(t *testing.T) {
	c := newTestCore()
	c.KernelCalls = NewKernelCallTable()
	defer c.KernelCalls.Close()
	c.KernelCalls.RegisterScript(0, `gpr[3] = gpr[1] * 2`)
	c.GPR[1] = 21
	c.loadAt(0x1000, dform(1, 0, 0, 0)) // kc 0
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.GPR[3] != 42 {
		t.Fatalf("r3 = %d, want 42", c.GPR[3])
	}
}
