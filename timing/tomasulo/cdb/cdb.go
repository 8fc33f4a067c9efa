// Package cdb implements the common data bus: the single completion broadcast
// channel shared by all functional units.
//
// One completion wins the bus per cycle under fixed priority; the losers hold
// their results in their adapters until granted. Priority favors the units
// that are hardest to stall, so iterative cores drain first.
package cdb

import (
	"fmt"

	"github.com/rvlab/o3sim/timing/tomasulo"
	"github.com/rvlab/o3sim/timing/tomasulo/fu"
)

// FUKind identifies a functional-unit port on the bus.
type FUKind uint8

// Functional-unit ports, in bus priority order (highest first).
const (
	KindFDIV FUKind = iota
	KindDIV
	KindFMUL
	KindMUL
	KindFPADD
	KindMEM
	KindALU

	NumKinds
)

var kindNames = [NumKinds]string{
	"fdiv", "div", "fmul", "mul", "fpadd", "mem", "alu",
}

// String returns the port name.
func (k FUKind) String() string {
	if k >= NumKinds {
		return "invalid"
	}
	return kindNames[k]
}

// Broadcast is the bus message seen by every snooper in a cycle.
type Broadcast struct {
	tomasulo.Completion

	// Kind is the port that won the bus.
	Kind FUKind
}

// Arbiter grants the bus to at most one functional-unit port per cycle.
type Arbiter struct {
	sources [NumKinds]fu.Adapter
	grants  [NumKinds]uint64
}

// NewArbiter creates an arbiter with no ports attached.
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Attach connects an adapter to a port. Attaching the same port twice is a
// wiring error.
func (a *Arbiter) Attach(kind FUKind, src fu.Adapter) {
	if kind >= NumKinds {
		panic(fmt.Sprintf("cdb: invalid port %d", kind))
	}
	if a.sources[kind] != nil {
		panic(fmt.Sprintf("cdb: port %s attached twice", kind))
	}
	a.sources[kind] = src
}

// Source returns the adapter attached to a port, or nil.
func (a *Arbiter) Source(kind FUKind) fu.Adapter {
	if kind >= NumKinds {
		return nil
	}
	return a.sources[kind]
}

// Arbitrate selects the highest-priority port holding a valid completion,
// drains it from its adapter, and returns the broadcast. It returns an
// invalid broadcast when no port has a result.
func (a *Arbiter) Arbitrate() Broadcast {
	for kind := FUKind(0); kind < NumKinds; kind++ {
		src := a.sources[kind]
		if src == nil {
			continue
		}
		out := src.Output()
		if !out.Valid {
			continue
		}
		src.Accept()
		a.grants[kind]++
		return Broadcast{Completion: out, Kind: kind}
	}
	return Broadcast{}
}

// Grants returns how many times a port has won the bus.
func (a *Arbiter) Grants(kind FUKind) uint64 {
	if kind >= NumKinds {
		return 0
	}
	return a.grants[kind]
}
