package cli

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/config"
	"github.com/roach88/supdto/internal/ctype"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Encoding string
	Type     typeSource
	Hex      bool
	Pretty   bool
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode binary or a C image into a value document",
		Long: `Read an encoded value and print it as a value document.

The self-describing binary encoding carries its type. Plain binary and C
images need one, given by registered name (--type) or as a type document
(--type-file).

Example:
  supdto decode frame.bin
  supdto decode frame.img --encoding c --type SensorFrame`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Encoding, "encoding", "e", EncodingBinary, "binary|plain|c")
	cmd.Flags().StringVarP(&opts.Type.Name, "type", "t", "", "registered type of the payload")
	cmd.Flags().StringVar(&opts.Type.File, "type-file", "", "type document of the payload")
	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "input is hex text")
	cmd.Flags().BoolVarP(&opts.Pretty, "pretty", "p", false, "indent the output")

	return cmd
}

func runDecode(opts *DecodeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	if err := checkEncoding(opts.Encoding); err != nil {
		return formatter.Fail(ErrCodeGeneric, "invalid arguments", err)
	}
	data, source, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return inputError(formatter, source, err)
	}
	if opts.Hex {
		if data, err = decodeHex(data); err != nil {
			return formatter.Fail("", "invalid input in "+source, err)
		}
	}

	var t dto.AnyType
	if opts.Encoding != EncodingBinary {
		reg, err := loadRegistry(cfg, opts.logger())
		if err != nil {
			return formatter.Fail("", "failed to load types", err)
		}
		if t, err = opts.Type.resolve(reg); err != nil {
			return formatter.Fail("", "cannot determine payload type", err)
		}
	}

	v, err := decodeValue(data, opts.Encoding, t, cfg)
	if err != nil {
		return formatter.Fail("", "failed to decode "+source, err)
	}
	formatter.VerboseLog("decoded %d bytes as %s", len(data), v.Type())

	out, err := dtojson.ValueToJSON(v, jsonOptions(cfg, opts.Pretty)...)
	if err != nil {
		return formatter.Fail("", "failed to render value", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(ValueResult{Type: v.Type().String(), Value: jsontext.Value(out)})
	}
	_, err = fmt.Fprintln(formatter.Writer, string(out))
	return err
}

func decodeValue(data []byte, encoding string, t dto.AnyType, cfg *config.Config) (*dto.AnyValue, error) {
	switch encoding {
	case EncodingPlain:
		return bincodec.Unmarshal(t, data)
	case EncodingC:
		v := dto.NewValue(t)
		if err := ctype.AssignFromCType(v, data, ctypeOptions(cfg)...); err != nil {
			return nil, err
		}
		return v, nil
	}
	return bincodec.UnmarshalSelfDescribing(data)
}
