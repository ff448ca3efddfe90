package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/ctype"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// CHeaderOptions holds flags for the cheader command.
type CHeaderOptions struct {
	*RootOptions
	Name    string
	Typedef string
}

// HeaderResult is a rendered C header.
type HeaderResult struct {
	Typedef string `json:"typedef"`
	Size    int    `json:"size"`
	Header  string `json:"header"`
}

// NewCHeaderCommand creates the cheader command.
func NewCHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CHeaderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cheader [file]",
		Short: "Print the packed C declaration of a struct type",
		Long: `Render a C header whose packed struct has the memory layout used by
"encode --encoding c". Strings occupy ctype.string_size bytes.

Example:
  supdto cheader --name SensorFrame --typedef frame_t`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCHeader(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "registered type name instead of a document")
	cmd.Flags().StringVar(&opts.Typedef, "typedef", "", "typedef name (default: snake_case type name + _t)")

	return cmd
}

func runCHeader(opts *CHeaderOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	reg, err := loadRegistry(cfg, opts.logger())
	if err != nil {
		return formatter.Fail("", "failed to load types", err)
	}

	var t dto.AnyType
	if opts.Name != "" {
		if t, err = (typeSource{Name: opts.Name}).resolve(reg); err != nil {
			return formatter.Fail(ErrCodeNotFound, "type lookup failed", err)
		}
	} else {
		data, source, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return inputError(formatter, source, err)
		}
		if t, err = dtojson.TypeFromJSON(reg, data); err != nil {
			return formatter.Fail("", "invalid type in "+source, err)
		}
	}

	header, err := ctype.Header(t, opts.Typedef, ctypeOptions(cfg)...)
	if err != nil {
		return formatter.Fail("", "failed to render header", err)
	}

	if formatter.Format == "json" {
		size, err := ctype.Size(t, ctypeOptions(cfg)...)
		if err != nil {
			return formatter.Fail("", "failed to size type", err)
		}
		typedef := opts.Typedef
		if typedef == "" {
			typedef = ctype.TypedefName(t.Name())
		}
		return formatter.Success(HeaderResult{Typedef: typedef, Size: size, Header: header})
	}
	_, err = fmt.Fprint(formatter.Writer, header)
	return err
}
