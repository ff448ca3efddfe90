package cli

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/bincodec"
	"github.com/roach88/supdto/internal/ctype"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// TypeOptions holds flags for the type command.
type TypeOptions struct {
	*RootOptions
	Name   string
	Pretty bool
}

// TypeResult describes a type.
type TypeResult struct {
	Name          string         `json:"name"`
	Definition    jsontext.Value `json:"definition"`
	Fingerprint   string         `json:"fingerprint"`
	MinBinarySize uint64         `json:"min_binary_size"`
	CSize         *int           `json:"c_size,omitempty"`
}

// NewTypeCommand creates the type command.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "type [file]",
		Short: "Describe a type",
		Long: `Parse a type document (or look up a registered type) and print its
normalised JSON definition, fingerprint and sizes.

Example:
  supdto type frame.type.json
  supdto type --name SensorFrame --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runType(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "registered type name instead of a document")
	cmd.Flags().BoolVarP(&opts.Pretty, "pretty", "p", false, "indent the definition")

	return cmd
}

func runType(opts *TypeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	reg, err := loadRegistry(cfg, opts.logger())
	if err != nil {
		return formatter.Fail("", "failed to load types", err)
	}

	var t dto.AnyType
	if opts.Name != "" {
		if len(args) > 0 {
			return formatter.Fail(ErrCodeGeneric, "invalid arguments", fmt.Errorf("--name and a file are mutually exclusive"))
		}
		t, err = typeSource{Name: opts.Name}.resolve(reg)
		if err != nil {
			return formatter.Fail(ErrCodeNotFound, "type lookup failed", err)
		}
	} else {
		data, source, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return inputError(formatter, source, err)
		}
		t, err = dtojson.TypeFromJSON(reg, data)
		if err != nil {
			return formatter.Fail("", "invalid type in "+source, err)
		}
	}

	result, err := describeType(t, opts)
	if err != nil {
		return formatter.Fail("", "failed to describe type", err)
	}
	formatter.VerboseLog("type %s: %d member(s) or element(s)", t, t.NumberOfChildren())

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintln(w, string(result.Definition))
	fmt.Fprintf(w, "fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(w, "min binary size: %d bytes\n", result.MinBinarySize)
	if result.CSize != nil {
		fmt.Fprintf(w, "c size: %d bytes\n", *result.CSize)
	} else {
		fmt.Fprintln(w, "c size: none (no fixed layout)")
	}
	return nil
}

func describeType(t dto.AnyType, opts *TypeOptions) (TypeResult, error) {
	cfg := opts.config()
	def, err := dtojson.TypeToJSON(t, jsonOptions(cfg, opts.Pretty)...)
	if err != nil {
		return TypeResult{}, err
	}
	fp, err := dtojson.Fingerprint(t)
	if err != nil {
		return TypeResult{}, err
	}
	result := TypeResult{
		Name:          t.Name(),
		Definition:    jsontext.Value(def),
		Fingerprint:   fp,
		MinBinarySize: bincodec.MinWireSize(t, false),
	}
	if n, err := ctype.Size(t, ctypeOptions(cfg)...); err == nil {
		result.CSize = &n
	}
	return result, nil
}
