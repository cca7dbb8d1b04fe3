// kernelcall.go - the bridge-call opcode's host-handler registry.
//
// The handler behind the bridge-call opcode is treated as an opaque
// external collaborator; this gives that collaborator a concrete,
// scriptable implementation backed by gopher-lua so its behavior can
// be inspected and driven from tests without writing Go for every
// registered call. Each Core owns its own *lua.LState (an
// LState is not safe for concurrent use, and Core already promises
// exactly one goroutine at a time owns it), lazily created on first
// dispatch to that core.
//
// License: GPLv3 or later

package espresso

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// KernelCallHandler is invoked with the Core whose bridge-call opcode
// triggered it. It may read/write GPRs, reassign CoreIndex to signal
// a migration, or set Fault to report a failure back to the caller.
type KernelCallHandler func(c *Core)

// KernelCallTable resolves the bridge-call opcode's 24-bit id to a
// handler. Entries registered with RegisterScript run as Lua source
// against a per-core interpreter state; entries registered with
// RegisterFunc run directly as Go.
type KernelCallTable struct {
	mu      sync.Mutex
	scripts map[uint32]string
	funcs   map[uint32]KernelCallHandler
	perCore map[int]*lua.LState
}

// NewKernelCallTable returns an empty table. Handlers are registered
// before use; bridge-calling an unregistered id is a fatal model
// failure (see execKc in system.go).
func NewKernelCallTable() *KernelCallTable {
	return &KernelCallTable{
		scripts: make(map[uint32]string),
		funcs:   make(map[uint32]KernelCallHandler),
		perCore: make(map[int]*lua.LState),
	}
}

// RegisterFunc installs a native Go handler for id.
func (t *KernelCallTable) RegisterFunc(id uint32, handler KernelCallHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.funcs[id] = handler
}

// RegisterScript installs a Lua handler for id. The script sees a
// global table `gpr` indexed 0..31 holding the calling core's
// general-purpose registers and may assign back into it. `gpr` is
// rebuilt on every invocation; any other global state persists across
// invocations on the same core, and each core has its own state.
func (t *KernelCallTable) RegisterScript(id uint32, script string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts[id] = script
}

// Lookup resolves id to a handler. For script-backed entries the
// handler creates the calling core's Lua state on its first run.
func (t *KernelCallTable) Lookup(id uint32) (KernelCallHandler, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if fn, ok := t.funcs[id]; ok {
		return fn, true
	}
	script, ok := t.scripts[id]
	if !ok {
		return nil, false
	}
	return func(c *Core) { t.runScript(c, script) }, true
}

func (t *KernelCallTable) state(core int) *lua.LState {
	if st, ok := t.perCore[core]; ok {
		return st
	}
	st := lua.NewState()
	t.perCore[core] = st
	return st
}

// Close releases every per-core Lua interpreter. Not safe to call
// while any core may still dispatch a bridge-call.
func (t *KernelCallTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.perCore {
		st.Close()
	}
	t.perCore = make(map[int]*lua.LState)
}

func (t *KernelCallTable) runScript(c *Core, script string) {
	t.mu.Lock()
	st := t.state(c.CoreIndex)
	t.mu.Unlock()

	gpr := st.NewTable()
	for i, v := range c.GPR {
		gpr.RawSetInt(i, lua.LNumber(v))
	}
	st.SetGlobal("gpr", gpr)

	if err := st.DoString(script); err != nil {
		c.Fault = &FaultError{CIA: c.CIA, Reason: fmt.Sprintf("kernel call script error: %v", err)}
		return
	}

	for i := range c.GPR {
		v := gpr.RawGetInt(i)
		if n, ok := v.(lua.LNumber); ok {
			c.GPR[i] = uint32(int64(n))
		}
	}
}
