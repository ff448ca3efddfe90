// Package visit walks AnyType and AnyValue trees without recursion.
//
// Walk keeps an explicit stack of frames. Each frame is one of five kinds
// (empty, scalar, struct, member, array) and the handler sees exactly the
// event sequence a recursive depth-first walk would produce:
//
//	StructProlog
//	  MemberProlog(name) <child events> MemberEpilog
//	  MemberSeparator
//	  MemberProlog(name) <child events> MemberEpilog
//	StructEpilog
//
// Arrays interleave ElementSeparator between element events the same way.
// For types an array has a single child: its element type.
package visit

import (
	"github.com/roach88/supdto/internal/dto"
)

// Node is the tree shape Walk understands. Both dto.AnyType and
// *dto.AnyValue satisfy Node of themselves.
type Node[T any] interface {
	Code() dto.TypeCode
	NumberOfChildren() int
	ChildName(i int) string
	Child(i int) T
}

// Handler receives walk events. Returning an error aborts the walk and the
// error is returned from Walk unchanged.
//
// Prolog hooks run before the node's children are counted, so a prolog may
// resize the node (decoders grow unbounded arrays there).
type Handler[T any] interface {
	EmptyProlog(node T) error
	EmptyEpilog(node T) error
	ScalarProlog(node T) error
	ScalarEpilog(node T) error
	StructProlog(node T) error
	StructEpilog(node T) error
	MemberProlog(node T, name string) error
	MemberEpilog(node T, name string) error
	MemberSeparator() error
	ArrayProlog(node T) error
	ArrayEpilog(node T) error
	ElementSeparator() error
}

// Base is a Handler that ignores every event. Embed it and override the
// events of interest.
type Base[T any] struct{}

func (Base[T]) EmptyProlog(T) error          { return nil }
func (Base[T]) EmptyEpilog(T) error          { return nil }
func (Base[T]) ScalarProlog(T) error         { return nil }
func (Base[T]) ScalarEpilog(T) error         { return nil }
func (Base[T]) StructProlog(T) error         { return nil }
func (Base[T]) StructEpilog(T) error         { return nil }
func (Base[T]) MemberProlog(T, string) error { return nil }
func (Base[T]) MemberEpilog(T, string) error { return nil }
func (Base[T]) MemberSeparator() error       { return nil }
func (Base[T]) ArrayProlog(T) error          { return nil }
func (Base[T]) ArrayEpilog(T) error          { return nil }
func (Base[T]) ElementSeparator() error      { return nil }

type frameKind uint8

const (
	emptyFrame frameKind = iota
	scalarFrame
	structFrame
	memberFrame
	arrayFrame
)

type frame[T any] struct {
	kind     frameKind
	node     T
	name     string // member frames only
	children int
	next     int
}

func kindOf(code dto.TypeCode) frameKind {
	switch {
	case code == dto.StructCode:
		return structFrame
	case code.IsArray():
		return arrayFrame
	case code.IsScalar():
		return scalarFrame
	}
	return emptyFrame
}

// Walk visits root depth-first in child order.
func Walk[T Node[T]](root T, h Handler[T]) error {
	w := walker[T]{h: h}
	if err := w.enter(root); err != nil {
		return err
	}
	for len(w.stack) > 0 {
		if err := w.step(); err != nil {
			return err
		}
	}
	return nil
}

type walker[T Node[T]] struct {
	h     Handler[T]
	stack []frame[T]
}

func (w *walker[T]) enter(node T) error {
	f := frame[T]{kind: kindOf(node.Code()), node: node}
	var err error
	switch f.kind {
	case emptyFrame:
		err = w.h.EmptyProlog(node)
	case scalarFrame:
		err = w.h.ScalarProlog(node)
	case structFrame:
		err = w.h.StructProlog(node)
	case arrayFrame:
		err = w.h.ArrayProlog(node)
	}
	if err != nil {
		return err
	}
	if f.kind == structFrame || f.kind == arrayFrame {
		f.children = node.NumberOfChildren()
	}
	w.stack = append(w.stack, f)
	return nil
}

func (w *walker[T]) leave() error {
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	switch f.kind {
	case emptyFrame:
		return w.h.EmptyEpilog(f.node)
	case scalarFrame:
		return w.h.ScalarEpilog(f.node)
	case structFrame:
		return w.h.StructEpilog(f.node)
	case memberFrame:
		return w.h.MemberEpilog(f.node, f.name)
	}
	return w.h.ArrayEpilog(f.node)
}

func (w *walker[T]) step() error {
	top := &w.stack[len(w.stack)-1]
	if top.next == top.children {
		return w.leave()
	}

	i := top.next
	top.next++
	switch top.kind {
	case structFrame:
		if i > 0 {
			if err := w.h.MemberSeparator(); err != nil {
				return err
			}
		}
		node, name := top.node.Child(i), top.node.ChildName(i)
		if err := w.h.MemberProlog(node, name); err != nil {
			return err
		}
		w.stack = append(w.stack, frame[T]{kind: memberFrame, node: node, name: name, children: 1})
	case arrayFrame:
		if i > 0 {
			if err := w.h.ElementSeparator(); err != nil {
				return err
			}
		}
		return w.enter(top.node.Child(i))
	case memberFrame:
		return w.enter(top.node)
	}
	return nil
}
