package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/config"
	"github.com/roach88/supdto/internal/ctype"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// Encodings accepted by encode and decode.
const (
	EncodingBinary = "binary" // self-describing binary: type section then tagged values
	EncodingPlain  = "plain"  // plain binary: values only, type supplied separately
	EncodingC      = "c"      // packed C memory image
)

// ValidEncodings defines the allowed --encoding values.
var ValidEncodings = []string{EncodingBinary, EncodingPlain, EncodingC}

func checkEncoding(enc string) error {
	for _, e := range ValidEncodings {
		if e == enc {
			return nil
		}
	}
	return fmt.Errorf("invalid encoding %q: must be one of %v", enc, ValidEncodings)
}

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Encoding string
	Out      string
	Hex      bool
}

// EncodeResult summarises an encoding.
type EncodeResult struct {
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Hex      string `json:"hex,omitempty"`
	Out      string `json:"out,omitempty"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a value document as binary or a C image",
		Long: `Read a value document and write its binary encoding.

Encodings:
  binary  self-describing (type section followed by tagged values)
  plain   values only; decoding needs the type
  c       packed C memory image (fixed-layout types only)

Example:
  supdto encode frame.json --out frame.bin
  supdto encode frame.json --encoding c --hex`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Encoding, "encoding", "e", EncodingBinary, "binary|plain|c")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "write hex text instead of raw bytes")

	return cmd
}

func runEncode(opts *EncodeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	if err := checkEncoding(opts.Encoding); err != nil {
		return formatter.Fail(ErrCodeGeneric, "invalid arguments", err)
	}
	reg, err := loadRegistry(cfg, opts.logger())
	if err != nil {
		return formatter.Fail("", "failed to load types", err)
	}
	data, source, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return inputError(formatter, source, err)
	}
	v, err := dtojson.ValueFromJSON(reg, data)
	if err != nil {
		return formatter.Fail("", "invalid value in "+source, err)
	}

	encoded, err := encodeValue(v, opts.Encoding, cfg)
	if err != nil {
		return formatter.Fail("", "failed to encode value", err)
	}
	opts.logger().Debug("value encoded", "encoding", opts.Encoding, "type", v.Type().String(), "bytes", len(encoded))

	result := EncodeResult{Encoding: opts.Encoding, Size: len(encoded), Out: opts.Out}
	payload := encoded
	if opts.Hex || formatter.Format == "json" {
		result.Hex = hex.EncodeToString(encoded)
		payload = []byte(result.Hex + "\n")
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, payload, 0o644); err != nil {
			return formatter.Fail(ErrCodeWriteFailed, "failed to write output", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "wrote %d bytes (%s) to %s\n", len(encoded), opts.Encoding, opts.Out)
		return nil
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(payload)
}

func encodeValue(v *dto.AnyValue, encoding string, cfg *config.Config) ([]byte, error) {
	switch encoding {
	case EncodingPlain:
		return bincodec.Marshal(v)
	case EncodingC:
		return ctype.ToBytes(v, ctypeOptions(cfg)...)
	}
	return bincodec.MarshalSelfDescribing(v)
}
