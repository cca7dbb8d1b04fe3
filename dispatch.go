// dispatch.go - opcode handler table, Step/Resume, and the fatal
// model-failure type.
//
// License: GPLv3 or later

package espresso

import "fmt"

// FaultError is a fatal model failure: guest-arithmetic conditions
// never produce one (those live in FPSCR/XER/CR), but a decode
// failure, an unimplemented opcode, a broken cia invariant, or an
// opaque external collaborator error (kernel call, interrupt check)
// does. Once set on a Core, Step refuses to execute further.
type FaultError struct {
	CIA    uint32
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("espresso: fault at cia=0x%08x: %s", e.CIA, e.Reason)
}

type opcodeHandler func(c *Core, in Instruction)

// handlers is a dense vector indexed by InstructionID, initialized
// once by the seven register* groups below and never mutated after
// package init.
var handlers [InsKc + 1]opcodeHandler

func registerHandler(id InstructionID, fn opcodeHandler) {
	handlers[id] = fn
}

func init() {
	registerIntegerInstructions()
	registerBranchInstructions()
	registerConditionInstructions()
	registerLoadStoreInstructions()
	registerFloatInstructions()
	registerPairedInstructions()
	registerSystemInstructions()
}

// CallbackAddr is the sentinel nia value Resume runs until: a host
// embedding this core sets nia to it (or a branch/bctr target lands
// there) to signal "return control to the host."
const CallbackAddr uint32 = 0xFFFFFFFC

// Step executes exactly one instruction: fetch at cia, decode,
// dispatch, and verify the handler left cia untouched. It returns the
// Core's Fault (already set on the Core too) the first time a model
// failure occurs; Step is a no-op once Fault is set.
func (c *Core) Step() error {
	if c.Fault != nil {
		return c.Fault
	}

	c.CIA = c.NIA
	c.NIA = c.CIA + 4

	word := c.Memory.ReadU32(c.CIA)
	in := Decode(word)

	id := DecodeID(in)
	if id == InsInvalid {
		c.Fault = &FaultError{CIA: c.CIA, Reason: fmt.Sprintf("unimplemented opcode (word 0x%08x)", word)}
		return c.Fault
	}

	handler := handlers[id]
	if handler == nil {
		c.Fault = &FaultError{CIA: c.CIA, Reason: fmt.Sprintf("instruction id %d has no registered handler", id)}
		return c.Fault
	}

	savedCIA := c.CIA
	handler(c, in)
	if c.Fault != nil {
		return c.Fault
	}
	if c.CIA != savedCIA {
		c.Fault = &FaultError{CIA: savedCIA, Reason: "handler mutated cia"}
		return c.Fault
	}

	return nil
}

// Resume runs Step until nia reaches CallbackAddr or a fault occurs.
// checkInterrupt is an
// external collaborator: called whenever c.Interrupt is set, it may
// block the calling goroutine and must clear c.Interrupt before
// returning if the interrupt was serviced.
func (c *Core) Resume(checkInterrupt func(c *Core)) error {
	for c.NIA != CallbackAddr {
		if c.Interrupt.Load() {
			if checkInterrupt != nil {
				checkInterrupt(c)
			} else {
				c.Interrupt.Store(false)
			}
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}
