package ctype

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

var cScalarNames = map[dto.TypeCode]string{
	dto.BoolCode:    "bool",
	dto.Char8Code:   "char",
	dto.Int8Code:    "int8_t",
	dto.UInt8Code:   "uint8_t",
	dto.Int16Code:   "int16_t",
	dto.UInt16Code:  "uint16_t",
	dto.Int32Code:   "int32_t",
	dto.UInt32Code:  "uint32_t",
	dto.Int64Code:   "int64_t",
	dto.UInt64Code:  "uint64_t",
	dto.Float32Code: "float",
	dto.Float64Code: "double",
	dto.StringCode:  "char",
}

// Header renders a packed C declaration of the struct type t whose layout
// matches ToBytes. Nested struct types become their own typedefs, emitted
// before first use; identifiers are snake_case.
//
//	#pragma pack(push, 1)
//	typedef struct {
//	    double x;
//	    char label[64];
//	} point_t;
//	#pragma pack(pop)
func Header(t dto.AnyType, typedefName string, opts ...Option) (string, error) {
	if !t.IsStruct() {
		return "", dto.NewError(dto.KindSerialize, "Header", "type %s is not a struct", t)
	}
	if typedefName == "" {
		typedefName = TypedefName(t.Name())
	}
	if _, err := Size(t, opts...); err != nil {
		return "", err
	}

	h := &headerWriter{opts: resolve(opts), root: typedefName, defined: map[string]dto.AnyType{}}
	if err := visit.Walk[dto.AnyType](t, h); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#include <stdbool.h>\n#include <stdint.h>\n\n#pragma pack(push, 1)\n")
	for _, def := range h.defs {
		b.WriteString("\n")
		b.WriteString(def)
	}
	b.WriteString("\n#pragma pack(pop)\n")
	return b.String(), nil
}

// TypedefName is the default typedef of a type named name: snake_case plus
// "_t". Unnamed types get "value_t".
func TypedefName(name string) string {
	if name == "" {
		return "value_t"
	}
	return strcase.ToSnake(name) + "_t"
}

// structDef is a typedef under construction.
type structDef struct {
	name   string
	typ    dto.AnyType
	lines  []string
	idents map[string]bool
}

var cIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var cKeywords = map[string]bool{
	"auto": true, "bool": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true, "double": true,
	"else": true, "enum": true, "extern": true, "false": true, "float": true,
	"for": true, "goto": true, "if": true, "inline": true, "int": true,
	"long": true, "register": true, "restrict": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true, "switch": true,
	"true": true, "typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
}

// checkIdent rejects identifiers a C compiler would not accept.
func checkIdent(ident, what string) error {
	if !cIdent.MatchString(ident) || cKeywords[ident] {
		return dto.NewError(dto.KindSerialize, "Header", "%s %q is not a valid C identifier", what, ident)
	}
	return nil
}

// declarator is the member currently being declared: its identifier and
// the array dimensions seen so far.
type declarator struct {
	ident string
	dims  []int
}

func (d declarator) render(ctype string, extra ...int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "    %s %s", ctype, d.ident)
	for _, n := range append(append([]int(nil), d.dims...), extra...) {
		fmt.Fprintf(&b, "[%d]", n)
	}
	b.WriteString(";")
	return b.String()
}

type headerWriter struct {
	visit.Base[dto.AnyType]
	opts    Options
	root    string
	structs []*structDef
	decls   []declarator
	defined map[string]dto.AnyType
	defs    []string
}

func (h *headerWriter) StructProlog(t dto.AnyType) error {
	name := h.root
	switch {
	case len(h.structs) == 0:
	case t.Name() != "":
		name = TypedefName(t.Name())
	default:
		parent := strings.TrimSuffix(h.structs[len(h.structs)-1].name, "_t")
		name = parent + "_" + h.decls[len(h.decls)-1].ident + "_t"
	}
	if err := checkIdent(name, "typedef"); err != nil {
		return err
	}
	h.structs = append(h.structs, &structDef{name: name, typ: t, idents: map[string]bool{}})
	return nil
}

func (h *headerWriter) StructEpilog(t dto.AnyType) error {
	def := h.structs[len(h.structs)-1]
	h.structs = h.structs[:len(h.structs)-1]

	if prev, ok := h.defined[def.name]; ok {
		if !prev.Equal(t) {
			return dto.NewError(dto.KindSerialize, "Header", "two different types map to C name %q", def.name)
		}
	} else {
		h.defined[def.name] = t
		var b strings.Builder
		b.WriteString("typedef struct {\n")
		for _, line := range def.lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "} %s;\n", def.name)
		h.defs = append(h.defs, b.String())
	}

	if len(h.structs) > 0 {
		h.emit(h.decls[len(h.decls)-1].render(def.name))
	}
	return nil
}

func (h *headerWriter) MemberProlog(_ dto.AnyType, name string) error {
	ident := strcase.ToSnake(name)
	if err := checkIdent(ident, "member"); err != nil {
		return err
	}
	def := h.structs[len(h.structs)-1]
	if def.idents[ident] {
		return dto.NewError(dto.KindSerialize, "Header", "members of %s collide on C name %q", def.name, ident)
	}
	def.idents[ident] = true
	h.decls = append(h.decls, declarator{ident: ident})
	return nil
}

func (h *headerWriter) MemberEpilog(dto.AnyType, string) error {
	h.decls = h.decls[:len(h.decls)-1]
	return nil
}

func (h *headerWriter) ArrayProlog(t dto.AnyType) error {
	d := &h.decls[len(h.decls)-1]
	d.dims = append(d.dims, t.NumberOfElements())
	return nil
}

func (h *headerWriter) ArrayEpilog(dto.AnyType) error {
	d := &h.decls[len(h.decls)-1]
	d.dims = d.dims[:len(d.dims)-1]
	return nil
}

func (h *headerWriter) ScalarProlog(t dto.AnyType) error {
	d := h.decls[len(h.decls)-1]
	if t.Code() == dto.StringCode {
		h.emit(d.render(cScalarNames[t.Code()], h.opts.StringSize))
		return nil
	}
	h.emit(d.render(cScalarNames[t.Code()]))
	return nil
}

func (h *headerWriter) emit(line string) {
	def := h.structs[len(h.structs)-1]
	def.lines = append(def.lines, line)
}
