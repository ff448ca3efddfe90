// Package compose builds AnyValue trees imperatively.
//
// A Composer keeps a stack of components, one per open struct, field, array
// or array element. Start calls push, End calls pop and fold the finished
// value into the component below:
//
//	c := compose.New()
//	c.StartStruct("point")
//	c.StartField("x")
//	c.AddFloat64(1.5)
//	c.EndField()
//	c.EndStruct()
//	v, err := c.Result()
//
// Every call that is illegal at the current position fails with an
// InvalidOperation error and leaves the Composer unchanged.
package compose

import (
	"github.com/roach88/supdto/internal/dto"
)

type componentKind uint8

const (
	rootComponent componentKind = iota
	structComponent
	fieldComponent
	arrayComponent
	elementComponent
)

func (k componentKind) String() string {
	switch k {
	case rootComponent:
		return "root"
	case structComponent:
		return "struct"
	case fieldComponent:
		return "field"
	case arrayComponent:
		return "array"
	case elementComponent:
		return "array element"
	}
	return "unknown"
}

// component is one stack position. Which fields are used depends on kind:
// struct holds the value under construction, field and element a name or
// index plus the single value they receive, array the collected elements.
type component struct {
	kind     componentKind
	name     string
	value    *dto.AnyValue
	elements []*dto.AnyValue
}

// Composer builds one value. The zero value is not usable; call New.
type Composer struct {
	stack []component
}

// New returns an empty Composer.
func New() *Composer {
	return &Composer{stack: []component{{kind: rootComponent}}}
}

func misuse(format string, args ...any) error {
	return dto.NewError(dto.KindInvalidOperation, "Composer", format, args...)
}

func (c *Composer) top() *component {
	return &c.stack[len(c.stack)-1]
}

func (c *Composer) expect(kind componentKind, call string) error {
	if top := c.top(); top.kind != kind {
		return misuse("%s inside %s, want %s", call, top.kind, kind)
	}
	return nil
}

// canAccept reports whether the top component takes a value now.
func (c *Composer) canAccept(call string) error {
	top := c.top()
	switch top.kind {
	case rootComponent, fieldComponent, elementComponent:
		if top.value != nil {
			return misuse("%s: %s already has a value", call, top.kind)
		}
		return nil
	}
	return misuse("%s directly inside %s", call, top.kind)
}

// StartStruct opens a struct value named typeName.
func (c *Composer) StartStruct(typeName string) error {
	if err := c.canAccept("StartStruct"); err != nil {
		return err
	}
	c.stack = append(c.stack, component{kind: structComponent, value: dto.NewStructValue(typeName)})
	return nil
}

// EndStruct closes the innermost struct.
func (c *Composer) EndStruct() error {
	if err := c.expect(structComponent, "EndStruct"); err != nil {
		return err
	}
	v := c.pop().value
	c.top().value = v
	return nil
}

// StartField opens member name of the innermost struct.
func (c *Composer) StartField(name string) error {
	if err := c.expect(structComponent, "StartField"); err != nil {
		return err
	}
	if err := dto.ValidateMemberName(name); err != nil {
		return err
	}
	if c.top().value.HasMember(name) {
		return misuse("StartField: member %q already exists", name)
	}
	c.stack = append(c.stack, component{kind: fieldComponent, name: name})
	return nil
}

// EndField adds the field's value to the enclosing struct.
func (c *Composer) EndField() error {
	if err := c.expect(fieldComponent, "EndField"); err != nil {
		return err
	}
	f := c.top()
	if f.value == nil {
		return misuse("EndField: field %q has no value", f.name)
	}
	parent := &c.stack[len(c.stack)-2]
	if err := parent.value.AddMember(f.name, f.value); err != nil {
		return err
	}
	c.pop()
	return nil
}

// StartArray opens a fixed-size array value named typeName. Its size is the
// number of elements added before EndArray.
func (c *Composer) StartArray(typeName string) error {
	if err := c.canAccept("StartArray"); err != nil {
		return err
	}
	c.stack = append(c.stack, component{kind: arrayComponent, name: typeName})
	return nil
}

// StartArrayElement opens the next element of the innermost array.
func (c *Composer) StartArrayElement() error {
	if err := c.expect(arrayComponent, "StartArrayElement"); err != nil {
		return err
	}
	c.stack = append(c.stack, component{kind: elementComponent})
	return nil
}

// EndArrayElement appends the element's value to the enclosing array. All
// elements must have the type of the first.
func (c *Composer) EndArrayElement() error {
	if err := c.expect(elementComponent, "EndArrayElement"); err != nil {
		return err
	}
	e := c.top()
	if e.value == nil {
		return misuse("EndArrayElement: element has no value")
	}
	parent := &c.stack[len(c.stack)-2]
	if len(parent.elements) > 0 {
		want := parent.elements[0].Type()
		if got := e.value.Type(); !got.Equal(want) {
			return misuse("EndArrayElement: element %d is %s, want %s", len(parent.elements), got, want)
		}
	}
	parent.elements = append(parent.elements, e.value)
	c.pop()
	return nil
}

// EndArray closes the innermost array. An array without elements fails:
// its element type cannot be inferred.
func (c *Composer) EndArray() error {
	if err := c.expect(arrayComponent, "EndArray"); err != nil {
		return err
	}
	a := c.top()
	if len(a.elements) == 0 {
		return misuse("EndArray: array %q has no elements to infer its element type from", a.name)
	}
	v, err := dto.NewArrayValue(a.name, a.elements...)
	if err != nil {
		return err
	}
	c.pop()
	c.top().value = v
	return nil
}

// AddValue places a copy of v at the current position.
func (c *Composer) AddValue(v *dto.AnyValue) error {
	if v == nil {
		return misuse("AddValue: nil value")
	}
	if err := c.canAccept("AddValue"); err != nil {
		return err
	}
	c.top().value = v.Clone()
	return nil
}

// AddMember is StartField, AddValue and EndField in one call.
func (c *Composer) AddMember(name string, v *dto.AnyValue) error {
	if err := c.StartField(name); err != nil {
		return err
	}
	if err := c.AddValue(v); err != nil {
		c.pop()
		return err
	}
	if err := c.EndField(); err != nil {
		c.pop()
		return err
	}
	return nil
}

func (c *Composer) AddBool(x bool) error       { return c.AddValue(dto.NewBool(x)) }
func (c *Composer) AddChar8(x dto.Char8) error { return c.AddValue(dto.NewChar8(x)) }
func (c *Composer) AddInt8(x int8) error       { return c.AddValue(dto.NewInt8(x)) }
func (c *Composer) AddUInt8(x uint8) error     { return c.AddValue(dto.NewUInt8(x)) }
func (c *Composer) AddInt16(x int16) error     { return c.AddValue(dto.NewInt16(x)) }
func (c *Composer) AddUInt16(x uint16) error   { return c.AddValue(dto.NewUInt16(x)) }
func (c *Composer) AddInt32(x int32) error     { return c.AddValue(dto.NewInt32(x)) }
func (c *Composer) AddUInt32(x uint32) error   { return c.AddValue(dto.NewUInt32(x)) }
func (c *Composer) AddInt64(x int64) error     { return c.AddValue(dto.NewInt64(x)) }
func (c *Composer) AddUInt64(x uint64) error   { return c.AddValue(dto.NewUInt64(x)) }
func (c *Composer) AddFloat32(x float32) error { return c.AddValue(dto.NewFloat32(x)) }
func (c *Composer) AddFloat64(x float64) error { return c.AddValue(dto.NewFloat64(x)) }
func (c *Composer) AddString(x string) error   { return c.AddValue(dto.NewString(x)) }

// Result returns the composed value once every component is closed.
func (c *Composer) Result() (*dto.AnyValue, error) {
	if len(c.stack) != 1 {
		return nil, misuse("Result: %d component(s) still open, innermost is %s", len(c.stack)-1, c.top().kind)
	}
	if c.stack[0].value == nil {
		return nil, misuse("Result: nothing composed")
	}
	return c.stack[0].value, nil
}

// Depth returns the number of open components.
func (c *Composer) Depth() int {
	return len(c.stack) - 1
}

// Reset discards everything composed so far.
func (c *Composer) Reset() {
	c.stack = c.stack[:1]
	c.stack[0] = component{kind: rootComponent}
}

func (c *Composer) pop() component {
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return top
}
