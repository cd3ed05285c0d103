package compiler

import "errors"

// MaxLoopExits is the number of pending leave exits one loop can hold.
const MaxLoopExits = 32

var ErrTooManyExits = errors.New("too many leave exits in one loop")

// LoopContext records an open loop while its body is generated.
type LoopContext struct {
	Start uint16   // address of the first instruction of the body
	Line  int      // line of the opening begin
	Exits []uint16 // addresses of unpatched Jump operands
}

// AddExit records the operand address of a leave Jump.
func (l *LoopContext) AddExit(addr uint16) error {
	if len(l.Exits) >= MaxLoopExits {
		return ErrTooManyExits
	}
	l.Exits = append(l.Exits, addr)
	return nil
}

// LoopStack is the stack of currently open loops, innermost last.
type LoopStack struct {
	loops []*LoopContext
}

func (s *LoopStack) Push(start uint16, line int) *LoopContext {
	ctx := &LoopContext{Start: start, Line: line}
	s.loops = append(s.loops, ctx)
	return ctx
}

// Top returns the innermost open loop, or nil.
func (s *LoopStack) Top() *LoopContext {
	if len(s.loops) == 0 {
		return nil
	}
	return s.loops[len(s.loops)-1]
}

// Pop removes and returns the innermost open loop, or nil.
func (s *LoopStack) Pop() *LoopContext {
	top := s.Top()
	if top != nil {
		s.loops = s.loops[:len(s.loops)-1]
	}
	return top
}

// Drain empties the stack and returns the loops that were open, outermost first.
func (s *LoopStack) Drain() []*LoopContext {
	open := s.loops
	s.loops = nil
	return open
}

func (s *LoopStack) Len() int {
	return len(s.loops)
}
