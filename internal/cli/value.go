package cli

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/dtojson"
)

// ValueOptions holds flags for the value command.
type ValueOptions struct {
	*RootOptions
	Path   string
	Pretty bool
	Digest bool
}

// ValueResult is a parsed value.
type ValueResult struct {
	Type   string         `json:"type"`
	Value  jsontext.Value `json:"value"`
	Digest string         `json:"digest,omitempty"`
}

// NewValueCommand creates the value command.
func NewValueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "value [file]",
		Short: "Validate and print a value document",
		Long: `Parse a value document ([{"encoding":...},{"datatype":...},{"instance":...}])
and print it normalised. With --path, print only the instance at a field
path such as "samples[2]" or "position.x".

Example:
  supdto value frame.json --pretty
  supdto value frame.json --path position --digest`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValue(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "print only the instance at this field path")
	cmd.Flags().BoolVarP(&opts.Pretty, "pretty", "p", false, "indent the output")
	cmd.Flags().BoolVar(&opts.Digest, "digest", false, "also print the value digest")

	return cmd
}

func runValue(opts *ValueOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

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
	formatter.VerboseLog("parsed %s value from %s", v.Type(), source)

	var out []byte
	if opts.Path != "" {
		v, err = v.At(opts.Path)
		if err != nil {
			return formatter.Fail("", "field path "+opts.Path, err)
		}
		out, err = dtojson.InstanceToJSON(v, jsonOptions(cfg, opts.Pretty)...)
	} else {
		out, err = dtojson.ValueToJSON(v, jsonOptions(cfg, opts.Pretty)...)
	}
	if err != nil {
		return formatter.Fail("", "failed to render value", err)
	}

	result := ValueResult{Type: v.Type().String(), Value: jsontext.Value(out)}
	if opts.Digest {
		if result.Digest, err = bincodec.Digest(v); err != nil {
			return formatter.Fail("", "failed to digest value", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, string(out))
	if opts.Digest {
		fmt.Fprintf(formatter.Writer, "digest: %s\n", result.Digest)
	}
	return nil
}
