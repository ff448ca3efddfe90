package dtojson

import (
	"math"
	"math/bits"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// ValueFromJSON parses a value envelope. The datatype element is resolved
// against reg the same way TypeFromJSON does.
func ValueFromJSON(reg *dto.TypeRegistry, data []byte) (*dto.AnyValue, error) {
	if reg == nil {
		reg = dto.NewTypeRegistry()
	}
	root := &valueRoot{unsupportedNode: unsupportedNode{where: "value document"}, reg: reg, size: len(data)}
	if err := run(data, root); err != nil {
		return nil, err
	}
	return root.result, nil
}

// InstanceFromJSON parses a bare instance tree of type t, without the
// envelope.
func InstanceFromJSON(t dto.AnyType, data []byte) (*dto.AnyValue, error) {
	if err := checkCapacity(t, len(data)); err != nil {
		return nil, err
	}
	root := &instanceRoot{target: dto.NewValue(t)}
	root.valueSlots = valueSlots{unsupportedNode: unsupportedNode{where: "instance"}, next: root.nextSlot}
	if err := run(data, root); err != nil {
		return nil, err
	}
	return root.target, nil
}

// checkCapacity rejects types whose smallest instance is larger than the
// input, before any value of that type is allocated.
func checkCapacity(t dto.AnyType, size int) error {
	if need := minInstanceSize(t); need > uint64(size) {
		return parseErr("type %s needs at least %d bytes of JSON, have %d", t, need, size)
	}
	return nil
}

type valueRoot struct {
	unsupportedNode
	reg    *dto.TypeRegistry
	size   int
	done   bool
	result *dto.AnyValue
}

func (n *valueRoot) GetArrayNode() (buildNode, error) {
	if n.done {
		return nil, n.unexpected("array")
	}
	return &envelopeNode{unsupportedNode: unsupportedNode{where: "envelope"}, reg: n.reg, size: n.size}, nil
}

func (n *valueRoot) PopArrayNode(child buildNode) error {
	n.result, n.done = child.(*envelopeNode).value, true
	return nil
}

func (n *valueRoot) finish() error {
	if !n.done {
		return parseErr("empty value document")
	}
	return nil
}

// envelopeNode is the three-element array encoding, datatype, instance.
type envelopeNode struct {
	unsupportedNode
	reg   *dto.TypeRegistry
	size  int
	index int
	typ   dto.AnyType
	value *dto.AnyValue
}

func (n *envelopeNode) GetStructureNode() (buildNode, error) {
	switch n.index {
	case 0:
		return &encodingNode{unsupportedNode: unsupportedNode{where: "encoding element"}}, nil
	case 1:
		return &datatypeNode{unsupportedNode: unsupportedNode{where: "datatype element"}, reg: n.reg}, nil
	case 2:
		if err := checkCapacity(n.typ, n.size); err != nil {
			return nil, err
		}
		return newInstanceNode(n.typ), nil
	}
	return nil, parseErr("envelope has more than three elements")
}

func (n *envelopeNode) PopStructureNode(child buildNode) error {
	switch c := child.(type) {
	case *datatypeNode:
		n.typ = c.result
	case *instanceNode:
		n.value = c.target
	}
	n.index++
	return nil
}

func (n *envelopeNode) finish() error {
	if n.index != 3 {
		return parseErr("envelope has %d elements, want 3", n.index)
	}
	return nil
}

// encodingNode is {"encoding": EncodingID}.
type encodingNode struct {
	unsupportedNode
	keyed bool
	ok    bool
}

func (n *encodingNode) Member(key string) error {
	if n.keyed || key != "encoding" {
		return parseErr("unexpected key %q in encoding element", key)
	}
	n.keyed = true
	return nil
}

func (n *encodingNode) String(s string) error {
	if s != EncodingID {
		return parseErr("unsupported encoding %q", s)
	}
	n.ok = true
	return nil
}

func (n *encodingNode) finish() error {
	if !n.ok {
		return parseErr("missing %q", "encoding")
	}
	return nil
}

// datatypeNode is {"datatype": <type>}.
type datatypeNode struct {
	unsupportedNode
	reg    *dto.TypeRegistry
	keyed  bool
	done   bool
	result dto.AnyType
}

func (n *datatypeNode) Member(key string) error {
	if n.keyed || key != "datatype" {
		return parseErr("unexpected key %q in datatype element", key)
	}
	n.keyed = true
	return nil
}

func (n *datatypeNode) String(s string) error {
	t, err := lookupType(n.reg, s)
	if err != nil {
		return err
	}
	n.result, n.done = t, true
	return nil
}

func (n *datatypeNode) GetStructureNode() (buildNode, error) {
	return newTypeNode(n.reg), nil
}

func (n *datatypeNode) PopStructureNode(child buildNode) error {
	n.result, n.done = child.(*typeNode).result, true
	return nil
}

func (n *datatypeNode) finish() error {
	if !n.done {
		return parseErr("missing %q", "datatype")
	}
	return nil
}

// valueSlots writes JSON values into the slot returned by next. Struct and
// array values descend into the slot in place, so closing them needs no
// folding.
type valueSlots struct {
	unsupportedNode
	next func() (*dto.AnyValue, error)
}

// store converts src into the next slot. Conversion failures are reported
// as parse errors of the document.
func (n valueSlots) store(src *dto.AnyValue, accept func(dto.TypeCode) bool, event string) error {
	dst, err := n.next()
	if err != nil {
		return err
	}
	if !accept(dst.Code()) {
		return parseErr("unexpected %s for %s value in %s", event, dst.TypeName(), n.where)
	}
	if err := dst.ConvertFrom(src); err != nil {
		return parseErr("%s: %v", n.where, err)
	}
	return nil
}

func isInteger(c dto.TypeCode) bool { return c.IsNumeric() && c != dto.BoolCode && !isFloat(c) }
func isFloat(c dto.TypeCode) bool   { return c == dto.Float32Code || c == dto.Float64Code }
func isNumber(c dto.TypeCode) bool  { return isInteger(c) || isFloat(c) }

func (n valueSlots) Null() error {
	return n.store(dto.NewEmptyValue(), func(c dto.TypeCode) bool { return c == dto.EmptyCode }, "null")
}

func (n valueSlots) Bool(b bool) error {
	return n.store(dto.NewBool(b), func(c dto.TypeCode) bool { return c == dto.BoolCode }, "boolean")
}

func (n valueSlots) Int64(i int64) error {
	return n.store(dto.NewInt64(i), isNumber, "number")
}

func (n valueSlots) Uint64(u uint64) error {
	return n.store(dto.NewUInt64(u), isNumber, "number")
}

func (n valueSlots) Double(f float64) error {
	return n.store(dto.NewFloat64(f), isFloat, "fractional number")
}

func (n valueSlots) String(s string) error {
	return n.store(dto.NewString(s), func(c dto.TypeCode) bool { return c == dto.StringCode }, "string")
}

func (n valueSlots) GetStructureNode() (buildNode, error) {
	dst, err := n.next()
	if err != nil {
		return nil, err
	}
	if !dst.IsStruct() {
		return nil, parseErr("unexpected object for %s value in %s", dst.TypeName(), n.where)
	}
	return newStructValueNode(dst), nil
}

func (n valueSlots) GetArrayNode() (buildNode, error) {
	dst, err := n.next()
	if err != nil {
		return nil, err
	}
	if !dst.IsArray() {
		return nil, parseErr("unexpected array for %s value in %s", dst.TypeName(), n.where)
	}
	return newArrayValueNode(dst), nil
}

func (n valueSlots) PopStructureNode(buildNode) error { return nil }
func (n valueSlots) PopArrayNode(buildNode) error     { return nil }

// instanceNode is {"instance": <value>} for a value pre-built from the
// datatype.
type instanceNode struct {
	valueSlots
	target *dto.AnyValue
	keyed  bool
	filled bool
}

func newInstanceNode(t dto.AnyType) *instanceNode {
	n := &instanceNode{target: dto.NewValue(t)}
	n.valueSlots = valueSlots{unsupportedNode: unsupportedNode{where: "instance element"}, next: n.nextSlot}
	return n
}

func (n *instanceNode) Member(key string) error {
	if n.keyed || key != "instance" {
		return parseErr("unexpected key %q in instance element", key)
	}
	n.keyed = true
	return nil
}

func (n *instanceNode) nextSlot() (*dto.AnyValue, error) {
	n.filled = true
	return n.target, nil
}

func (n *instanceNode) finish() error {
	if !n.filled {
		return parseErr("missing %q", "instance")
	}
	return nil
}

// instanceRoot accepts exactly one top-level instance.
type instanceRoot struct {
	valueSlots
	target *dto.AnyValue
	filled bool
}

func (n *instanceRoot) nextSlot() (*dto.AnyValue, error) {
	if n.filled {
		return nil, parseErr("more than one top-level value")
	}
	n.filled = true
	return n.target, nil
}

func (n *instanceRoot) finish() error {
	if !n.filled {
		return parseErr("empty instance document")
	}
	return nil
}

// structValueNode fills the members of a struct value. Members may come in
// any order but each exactly once.
type structValueNode struct {
	valueSlots
	target  *dto.AnyValue
	current int
	seen    []bool
}

func newStructValueNode(target *dto.AnyValue) *structValueNode {
	n := &structValueNode{target: target, seen: make([]bool, target.NumberOfMembers())}
	n.valueSlots = valueSlots{unsupportedNode: unsupportedNode{where: "struct " + quoteName(target.TypeName())}, next: n.nextSlot}
	return n
}

func (n *structValueNode) Member(key string) error {
	i := n.target.MemberIndex(key)
	if i < 0 {
		return parseErr("unknown member %q in %s", key, n.where)
	}
	if n.seen[i] {
		return parseErr("duplicate member %q in %s", key, n.where)
	}
	n.seen[i], n.current = true, i
	return nil
}

func (n *structValueNode) nextSlot() (*dto.AnyValue, error) {
	return n.target.Child(n.current), nil
}

func (n *structValueNode) finish() error {
	for i, ok := range n.seen {
		if !ok {
			return parseErr("missing member %q in %s", n.target.ChildName(i), n.where)
		}
	}
	return nil
}

// arrayValueNode fills array elements in order. Fixed arrays need exactly
// their size; unbounded arrays grow per element.
type arrayValueNode struct {
	valueSlots
	target *dto.AnyValue
	index  int
}

func newArrayValueNode(target *dto.AnyValue) *arrayValueNode {
	n := &arrayValueNode{target: target}
	n.valueSlots = valueSlots{unsupportedNode: unsupportedNode{where: "array " + quoteName(target.TypeName())}, next: n.nextSlot}
	return n
}

func (n *arrayValueNode) nextSlot() (*dto.AnyValue, error) {
	if n.target.Code() == dto.UnboundedArrayCode {
		if err := n.target.SetNumberOfElements(n.index + 1); err != nil {
			return nil, parseErr("%s: %v", n.where, err)
		}
	} else if n.index >= n.target.NumberOfElements() {
		return nil, parseErr("too many elements in %s, want %d", n.where, n.target.NumberOfElements())
	}
	dst := n.target.Child(n.index)
	n.index++
	return dst, nil
}

func (n *arrayValueNode) finish() error {
	if n.target.Code() == dto.ArrayCode && n.index != n.target.NumberOfElements() {
		return parseErr("%s has %d elements, want %d", n.where, n.index, n.target.NumberOfElements())
	}
	return nil
}

func quoteName(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return "\"" + name + "\""
}

// minInstanceSize returns the length of the shortest JSON instance of t,
// saturating at math.MaxUint64. Every scalar takes at least one byte and
// every struct or array at least two.
func minInstanceSize(t dto.AnyType) uint64 {
	s := &instanceSizer{mult: []uint64{1}}
	_ = visit.Walk[dto.AnyType](t, s)
	return s.total
}

type instanceSizer struct {
	visit.Base[dto.AnyType]
	mult  []uint64
	total uint64
}

func (s *instanceSizer) add(n uint64) {
	hi, lo := bits.Mul64(n, s.mult[len(s.mult)-1])
	if hi != 0 || s.total > math.MaxUint64-lo {
		s.total = math.MaxUint64
		return
	}
	s.total += lo
}

func (s *instanceSizer) EmptyProlog(dto.AnyType) error  { s.add(1); return nil }
func (s *instanceSizer) ScalarProlog(dto.AnyType) error { s.add(1); return nil }
func (s *instanceSizer) StructProlog(dto.AnyType) error { s.add(2); return nil }

func (s *instanceSizer) ArrayProlog(t dto.AnyType) error {
	s.add(2)
	top := s.mult[len(s.mult)-1]
	if t.Code() == dto.UnboundedArrayCode {
		s.mult = append(s.mult, 0)
		return nil
	}
	hi, lo := bits.Mul64(top, uint64(t.NumberOfElements()))
	if hi != 0 {
		lo = math.MaxUint64
	}
	s.mult = append(s.mult, lo)
	return nil
}

func (s *instanceSizer) ArrayEpilog(dto.AnyType) error {
	s.mult = s.mult[:len(s.mult)-1]
	return nil
}
