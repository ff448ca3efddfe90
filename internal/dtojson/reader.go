// Package dtojson reads and writes the JSON forms of AnyType and AnyValue.
//
// Types are objects of the form
//
//	{"type": <name> | <type>, "multiplicity": <uint>, "element": <type>, "attributes": [{"<member>": <type>}, ...]}
//
// where "multiplicity" and "element" describe arrays and "attributes" the
// members of a struct. A bare string in any type position is shorthand for
// {"type": <string>} and must name a registered type.
//
// Values travel in a three-element envelope:
//
//	[{"encoding": "sup-dto/v1.0/JSON"}, {"datatype": <type>}, {"instance": <instance>}]
//
// Readers never recurse: the token stream drives an explicit stack of build
// nodes, one per open JSON object or array.
package dtojson

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/roach88/supdto/internal/dto"
)

// EncodingID identifies the envelope format.
const EncodingID = "sup-dto/v1.0/JSON"

// buildNode is one stack position of the reader. Each JSON object or array
// pushes the node returned by GetStructureNode or GetArrayNode on the
// current top; closing it pops the node, calls finish on it, and hands it
// to the parent's PopStructureNode or PopArrayNode.
//
// The interface is sealed by the unexported finish method.
type buildNode interface {
	Null() error
	Bool(b bool) error
	Int64(i int64) error
	Uint64(u uint64) error
	Double(f float64) error
	String(s string) error
	Member(key string) error
	GetStructureNode() (buildNode, error)
	GetArrayNode() (buildNode, error)
	PopStructureNode(child buildNode) error
	PopArrayNode(child buildNode) error
	finish() error
}

func parseErr(format string, args ...any) error {
	return dto.NewError(dto.KindParse, "JSON", format, args...)
}

// unsupportedNode rejects every event. Nodes embed it and override the
// events valid at their position.
type unsupportedNode struct {
	where string
}

func (n unsupportedNode) unexpected(event string) error {
	return parseErr("unexpected %s in %s", event, n.where)
}

func (n unsupportedNode) Null() error                          { return n.unexpected("null") }
func (n unsupportedNode) Bool(bool) error                      { return n.unexpected("boolean") }
func (n unsupportedNode) Int64(int64) error                    { return n.unexpected("number") }
func (n unsupportedNode) Uint64(uint64) error                  { return n.unexpected("number") }
func (n unsupportedNode) Double(float64) error                 { return n.unexpected("number") }
func (n unsupportedNode) String(string) error                  { return n.unexpected("string") }
func (n unsupportedNode) Member(key string) error              { return n.unexpected(strconv.Quote(key)) }
func (n unsupportedNode) GetStructureNode() (buildNode, error) { return nil, n.unexpected("object") }
func (n unsupportedNode) GetArrayNode() (buildNode, error)     { return nil, n.unexpected("array") }
func (n unsupportedNode) PopStructureNode(buildNode) error     { return n.unexpected("object") }
func (n unsupportedNode) PopArrayNode(buildNode) error         { return n.unexpected("array") }
func (n unsupportedNode) finish() error                        { return nil }

// frame is a stack entry of the driver. Object frames alternate between
// expecting a key and expecting a value.
type frame struct {
	node      buildNode
	object    bool
	expectKey bool
}

// run feeds the tokens of data to root. It fails unless exactly one
// top-level value is consumed and the stack is back at root.
func run(data []byte, root buildNode) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	stack := []frame{{node: root}}

	for {
		kind := dec.PeekKind()
		if kind == 0 {
			_, err := dec.ReadToken()
			if errors.Is(err, io.EOF) {
				break
			}
			return syntaxErr(err)
		}

		top := &stack[len(stack)-1]
		var err error
		switch kind {
		case '{', '[':
			if _, err := dec.ReadToken(); err != nil {
				return syntaxErr(err)
			}
			var child buildNode
			if kind == '{' {
				child, err = top.node.GetStructureNode()
			} else {
				child, err = top.node.GetArrayNode()
			}
			if err != nil {
				return err
			}
			stack = append(stack, frame{node: child, object: kind == '{', expectKey: kind == '{'})
			continue

		case '}', ']':
			if _, err := dec.ReadToken(); err != nil {
				return syntaxErr(err)
			}
			child := stack[len(stack)-1].node
			stack = stack[:len(stack)-1]
			if err := child.finish(); err != nil {
				return err
			}
			top = &stack[len(stack)-1]
			if kind == '}' {
				err = top.node.PopStructureNode(child)
			} else {
				err = top.node.PopArrayNode(child)
			}

		case '"':
			tok, rerr := dec.ReadToken()
			if rerr != nil {
				return syntaxErr(rerr)
			}
			if top.object && top.expectKey {
				if err := top.node.Member(tok.String()); err != nil {
					return err
				}
				top.expectKey = false
				continue
			}
			err = top.node.String(tok.String())

		case 'n', 't', 'f':
			tok, rerr := dec.ReadToken()
			if rerr != nil {
				return syntaxErr(rerr)
			}
			if kind == 'n' {
				err = top.node.Null()
			} else {
				err = top.node.Bool(tok.Bool())
			}

		case '0':
			raw, rerr := dec.ReadValue()
			if rerr != nil {
				return syntaxErr(rerr)
			}
			err = number(top.node, string(raw))

		default:
			return parseErr("unexpected token kind %v", kind)
		}

		if err != nil {
			return err
		}
		if top.object {
			top.expectKey = true
		}
	}

	if len(stack) != 1 {
		return parseErr("parsing unfinished")
	}
	return root.finish()
}

func syntaxErr(err error) error {
	return dto.WrapError(dto.KindParse, "JSON", "malformed input", err)
}

// number classifies a JSON number literal: a fraction or exponent makes it
// a double, a leading minus a signed integer, anything else an unsigned
// integer. Integers that overflow 64 bits fall back to double.
func number(n buildNode, raw string) error {
	if !strings.ContainsAny(raw, ".eE") {
		if raw[0] == '-' {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n.Int64(i)
			}
		} else if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return n.Uint64(u)
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return parseErr("number %s out of range", raw)
	}
	return n.Double(f)
}
