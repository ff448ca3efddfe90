package dtojson

import (
	"bytes"
	"math"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/visit"
)

// Options controls the writers.
type Options struct {
	Pretty bool
	Indent string
}

// Option configures a writer.
type Option func(*Options)

// Pretty enables multi-line output indented by two spaces.
func Pretty() Option {
	return func(o *Options) { o.Pretty = true }
}

// Indent enables multi-line output indented by s.
func Indent(s string) Option {
	return func(o *Options) {
		o.Pretty = true
		o.Indent = s
	}
}

func newEncoder(buf *bytes.Buffer, opts []Option) *jsontext.Encoder {
	o := Options{Indent: "  "}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.Pretty {
		return jsontext.NewEncoder(buf)
	}
	return jsontext.NewEncoder(buf, jsontext.Multiline(true), jsontext.WithIndent(o.Indent))
}

func serializeErr(err error) error {
	if dto.KindOf(err) != "" {
		return err
	}
	return dto.WrapError(dto.KindSerialize, "JSON", "write failed", err)
}

// TypeToJSON renders t as a type document. Structs always carry their
// attributes, so the output parses without a registry.
func TypeToJSON(t dto.AnyType, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf, opts)
	if err := visit.Walk[dto.AnyType](t, &typeWriter{enc: enc}); err != nil {
		return nil, serializeErr(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// InstanceToJSON renders the instance tree of v without the envelope.
func InstanceToJSON(v *dto.AnyValue, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf, opts)
	if err := visit.Walk[*dto.AnyValue](v, &instanceWriter{enc: enc}); err != nil {
		return nil, serializeErr(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ValueToJSON renders v in the envelope
// [{"encoding": ...}, {"datatype": ...}, {"instance": ...}].
func ValueToJSON(v *dto.AnyValue, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf, opts)
	write := func() error {
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		if err := writeKeyed(enc, "encoding", func() error { return enc.WriteToken(jsontext.String(EncodingID)) }); err != nil {
			return err
		}
		if err := writeKeyed(enc, "datatype", func() error { return visit.Walk[dto.AnyType](v.Type(), &typeWriter{enc: enc}) }); err != nil {
			return err
		}
		if err := writeKeyed(enc, "instance", func() error { return visit.Walk[*dto.AnyValue](v, &instanceWriter{enc: enc}) }); err != nil {
			return err
		}
		return enc.WriteToken(jsontext.EndArray)
	}
	if err := write(); err != nil {
		return nil, serializeErr(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// writeKeyed writes {"key": <body>}.
func writeKeyed(enc *jsontext.Encoder, key string, body func() error) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String(key)); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}

// typeWriter emits type objects. JSON separators are inserted by the
// encoder.
type typeWriter struct {
	visit.Base[dto.AnyType]
	enc  *jsontext.Encoder
	name func(string) string
}

func (w *typeWriter) writeName(s string) error {
	if w.name != nil {
		s = w.name(s)
	}
	return w.enc.WriteToken(jsontext.String(s))
}

func (w *typeWriter) open(t dto.AnyType) error {
	if err := w.enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := w.enc.WriteToken(jsontext.String(keyType)); err != nil {
		return err
	}
	return w.writeName(t.Name())
}

func (w *typeWriter) leaf(t dto.AnyType) error {
	if err := w.open(t); err != nil {
		return err
	}
	return w.enc.WriteToken(jsontext.EndObject)
}

func (w *typeWriter) EmptyProlog(t dto.AnyType) error  { return w.leaf(t) }
func (w *typeWriter) ScalarProlog(t dto.AnyType) error { return w.leaf(t) }

func (w *typeWriter) StructProlog(t dto.AnyType) error {
	if err := w.open(t); err != nil {
		return err
	}
	if err := w.enc.WriteToken(jsontext.String(keyAttributes)); err != nil {
		return err
	}
	return w.enc.WriteToken(jsontext.BeginArray)
}

func (w *typeWriter) StructEpilog(dto.AnyType) error {
	if err := w.enc.WriteToken(jsontext.EndArray); err != nil {
		return err
	}
	return w.enc.WriteToken(jsontext.EndObject)
}

func (w *typeWriter) MemberProlog(_ dto.AnyType, name string) error {
	if err := w.enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	return w.writeName(name)
}

func (w *typeWriter) MemberEpilog(dto.AnyType, string) error {
	return w.enc.WriteToken(jsontext.EndObject)
}

func (w *typeWriter) ArrayProlog(t dto.AnyType) error {
	if err := w.open(t); err != nil {
		return err
	}
	if t.Code() == dto.ArrayCode {
		if err := w.enc.WriteToken(jsontext.String(keyMultiplicity)); err != nil {
			return err
		}
		if err := w.enc.WriteToken(jsontext.Uint(uint64(t.NumberOfElements()))); err != nil {
			return err
		}
	}
	return w.enc.WriteToken(jsontext.String(keyElement))
}

func (w *typeWriter) ArrayEpilog(dto.AnyType) error {
	return w.enc.WriteToken(jsontext.EndObject)
}

// instanceWriter emits instance trees: scalars as JSON literals, structs as
// objects keyed by member name, arrays as JSON arrays.
type instanceWriter struct {
	visit.Base[*dto.AnyValue]
	enc *jsontext.Encoder
}

func (w *instanceWriter) EmptyProlog(*dto.AnyValue) error {
	return w.enc.WriteToken(jsontext.Null)
}

func (w *instanceWriter) ScalarProlog(v *dto.AnyValue) error {
	bits, str := v.ScalarBits()
	switch code := v.Code(); code {
	case dto.BoolCode:
		return w.enc.WriteToken(jsontext.Bool(bits != 0))
	case dto.StringCode:
		return w.enc.WriteToken(jsontext.String(str))
	case dto.Float32Code:
		return w.float(float64(math.Float32frombits(uint32(bits))), 32)
	case dto.Float64Code:
		return w.float(math.Float64frombits(bits), 64)
	case dto.Int8Code, dto.Int16Code, dto.Int32Code, dto.Int64Code:
		return w.enc.WriteToken(jsontext.Int(int64(bits)))
	default:
		return w.enc.WriteToken(jsontext.Uint(bits))
	}
}

// float writes the shortest decimal form that reads back to the same
// float of the given width.
func (w *instanceWriter) float(f float64, bitSize int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dto.NewError(dto.KindSerialize, "JSON", "%g has no JSON representation", f)
	}
	if f == 0 && math.Signbit(f) {
		// "-0" would read back as the integer 0.
		return w.enc.WriteValue(jsontext.Value("-0.0"))
	}
	return w.enc.WriteValue(jsontext.Value(strconv.AppendFloat(nil, f, 'g', -1, bitSize)))
}

func (w *instanceWriter) StructProlog(*dto.AnyValue) error {
	return w.enc.WriteToken(jsontext.BeginObject)
}

func (w *instanceWriter) StructEpilog(*dto.AnyValue) error {
	return w.enc.WriteToken(jsontext.EndObject)
}

func (w *instanceWriter) MemberProlog(_ *dto.AnyValue, name string) error {
	return w.enc.WriteToken(jsontext.String(name))
}

func (w *instanceWriter) ArrayProlog(*dto.AnyValue) error {
	return w.enc.WriteToken(jsontext.BeginArray)
}

func (w *instanceWriter) ArrayEpilog(*dto.AnyValue) error {
	return w.enc.WriteToken(jsontext.EndArray)
}
