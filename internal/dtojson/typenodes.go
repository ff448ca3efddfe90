package dtojson

import (
	"math"

	"github.com/roach88/supdto/internal/dto"
)

// TypeFromJSON parses a type document. Named types ("int32", or any name
// registered in reg) may be referenced by name. A nil reg resolves leaf
// names only. Parsed types are not registered.
func TypeFromJSON(reg *dto.TypeRegistry, data []byte) (dto.AnyType, error) {
	if reg == nil {
		reg = dto.NewTypeRegistry()
	}
	root := &typeRoot{unsupportedNode: unsupportedNode{where: "type document"}, reg: reg}
	if err := run(data, root); err != nil {
		return dto.EmptyType(), err
	}
	return root.result, nil
}

// typeBuildErr turns a failed type construction into a parse error.
func typeBuildErr(err error) error {
	return parseErr("invalid type: %v", err)
}

func lookupType(reg *dto.TypeRegistry, name string) (dto.AnyType, error) {
	t, ok := reg.Lookup(name)
	if !ok {
		return dto.EmptyType(), parseErr("unknown type name %q", name)
	}
	return t, nil
}

type typeRoot struct {
	unsupportedNode
	reg    *dto.TypeRegistry
	done   bool
	result dto.AnyType
}

func (n *typeRoot) String(s string) error {
	if n.done {
		return n.unexpected("string")
	}
	t, err := lookupType(n.reg, s)
	if err != nil {
		return err
	}
	n.result, n.done = t, true
	return nil
}

func (n *typeRoot) GetStructureNode() (buildNode, error) {
	if n.done {
		return nil, n.unexpected("object")
	}
	return newTypeNode(n.reg), nil
}

func (n *typeRoot) PopStructureNode(child buildNode) error {
	n.result, n.done = child.(*typeNode).result, true
	return nil
}

func (n *typeRoot) finish() error {
	if !n.done {
		return parseErr("empty type document")
	}
	return nil
}

// Type object keys.
const (
	keyType         = "type"
	keyMultiplicity = "multiplicity"
	keyElement      = "element"
	keyAttributes   = "attributes"
)

// typeNode builds one type object. Keys must appear in the order
// type, multiplicity, element or type, attributes.
type typeNode struct {
	unsupportedNode
	reg *dto.TypeRegistry
	key string

	name   string
	named  bool
	nested *dto.AnyType

	mult    int
	hasMult bool

	elem  *dto.AnyType
	attrs []dto.Member

	hasAttrs bool
	result   dto.AnyType
}

func newTypeNode(reg *dto.TypeRegistry) *typeNode {
	return &typeNode{unsupportedNode: unsupportedNode{where: "type object"}, reg: reg}
}

func (n *typeNode) Member(key string) error {
	prev := n.key
	ok := false
	switch key {
	case keyType:
		ok = prev == ""
	case keyMultiplicity:
		ok = prev == keyType && n.named
	case keyElement:
		ok = (prev == keyType || prev == keyMultiplicity) && n.named
	case keyAttributes:
		ok = prev == keyType && n.named
	default:
		return parseErr("unknown key %q in type object", key)
	}
	if !ok {
		if prev == "" {
			return parseErr("key %q before %q in type object", key, keyType)
		}
		return parseErr("key %q may not follow %q in type object", key, prev)
	}
	n.key = key
	return nil
}

func (n *typeNode) String(s string) error {
	switch n.key {
	case keyType:
		n.name, n.named = s, true
		return nil
	case keyElement:
		t, err := lookupType(n.reg, s)
		if err != nil {
			return err
		}
		n.elem = &t
		return nil
	}
	return n.unexpected("string")
}

func (n *typeNode) Uint64(u uint64) error {
	if n.key != keyMultiplicity {
		return n.unexpected("number")
	}
	if u > math.MaxInt32 {
		return parseErr("multiplicity %d too large", u)
	}
	n.mult, n.hasMult = int(u), true
	return nil
}

func (n *typeNode) GetStructureNode() (buildNode, error) {
	if n.key != keyType && n.key != keyElement {
		return nil, n.unexpected("object")
	}
	return newTypeNode(n.reg), nil
}

func (n *typeNode) PopStructureNode(child buildNode) error {
	t := child.(*typeNode).result
	if n.key == keyType {
		n.nested = &t
	} else {
		n.elem = &t
	}
	return nil
}

func (n *typeNode) GetArrayNode() (buildNode, error) {
	if n.key != keyAttributes {
		return nil, n.unexpected("array")
	}
	return &memberArrayNode{unsupportedNode: unsupportedNode{where: "attributes"}, reg: n.reg}, nil
}

func (n *typeNode) PopArrayNode(child buildNode) error {
	n.attrs, n.hasAttrs = child.(*memberArrayNode).members, true
	return nil
}

func (n *typeNode) finish() error {
	var (
		t   dto.AnyType
		err error
	)
	switch {
	case n.key == "":
		return parseErr("type object without %q", keyType)
	case n.nested != nil:
		t = *n.nested
	case n.hasAttrs:
		t, err = dto.NewStructType(n.name, n.attrs...)
	case n.elem != nil && n.hasMult:
		t, err = dto.NewArrayType(n.name, *n.elem, n.mult)
	case n.elem != nil:
		t, err = dto.NewUnboundedArrayType(n.name, *n.elem)
	case n.hasMult:
		return parseErr("%q without %q in type %q", keyMultiplicity, keyElement, n.name)
	default:
		t, err = lookupType(n.reg, n.name)
		if err != nil {
			return err
		}
	}
	if err != nil {
		return typeBuildErr(err)
	}
	n.result = t
	return nil
}

// memberArrayNode collects the entries of "attributes".
type memberArrayNode struct {
	unsupportedNode
	reg     *dto.TypeRegistry
	members []dto.Member
}

func (n *memberArrayNode) GetStructureNode() (buildNode, error) {
	return &memberNode{unsupportedNode: unsupportedNode{where: "attribute entry"}, reg: n.reg}, nil
}

func (n *memberArrayNode) PopStructureNode(child buildNode) error {
	m := child.(*memberNode)
	n.members = append(n.members, dto.Member{Name: m.name, Type: m.typ})
	return nil
}

// memberNode is a single-key object {"<member>": <type>}.
type memberNode struct {
	unsupportedNode
	reg   *dto.TypeRegistry
	name  string
	keyed bool
	typed bool
	typ   dto.AnyType
}

func (n *memberNode) Member(key string) error {
	if n.keyed {
		return parseErr("attribute entry has more than one key (%q after %q)", key, n.name)
	}
	n.name, n.keyed = key, true
	return nil
}

func (n *memberNode) String(s string) error {
	t, err := lookupType(n.reg, s)
	if err != nil {
		return err
	}
	n.typ, n.typed = t, true
	return nil
}

func (n *memberNode) GetStructureNode() (buildNode, error) {
	return newTypeNode(n.reg), nil
}

func (n *memberNode) PopStructureNode(child buildNode) error {
	n.typ, n.typed = child.(*typeNode).result, true
	return nil
}

func (n *memberNode) finish() error {
	if !n.keyed || !n.typed {
		return parseErr("empty attribute entry")
	}
	return nil
}
