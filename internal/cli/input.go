package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/supdto/internal/config"
	"github.com/roach88/supdto/internal/ctype"
	"github.com/roach88/supdto/internal/cueschema"
	"github.com/roach88/supdto/internal/dto"
	"github.com/roach88/supdto/internal/dtojson"
)

// readInput reads the file named by the first argument, or stdin when there
// is none or it is "-".
func readInput(args []string, stdin io.Reader) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return data, "<stdin>", err
	}
	data, err := os.ReadFile(args[0])
	return data, args[0], err
}

// inputError reports a failed read, as not found when the file is missing.
func inputError(f *OutputFormatter, source string, err error) error {
	code := ErrCodeReadFailed
	if os.IsNotExist(err) {
		code = ErrCodeNotFound
	}
	return f.Fail(code, "failed to read "+source, err)
}

// decodeHex accepts hex text with arbitrary whitespace.
func decodeHex(data []byte) ([]byte, error) {
	clean := strings.Join(strings.Fields(string(data)), "")
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, dto.WrapError(dto.KindParse, "hex", "invalid hex input", err)
	}
	return out, nil
}

// loadRegistry builds the type registry from the config's type files. JSON
// documents are read in order, so later files may name types from earlier
// ones; CUE entries may be files or package directories.
func loadRegistry(cfg *config.Config, logger *slog.Logger) (*dto.TypeRegistry, error) {
	reg := dto.NewTypeRegistry()

	for _, path := range cfg.Types.JSON {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read type file: %w", err)
		}
		t, err := dtojson.TypeFromJSON(reg, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := reg.RegisterType(t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("type registered", "file", path, "name", t.Name())
	}

	for _, path := range cfg.Types.CUE {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("schema path: %w", err)
		}
		var names []string
		if info.IsDir() {
			names, err = cueschema.LoadDir(reg, path)
		} else {
			names, err = cueschema.LoadFile(reg, path)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("schema loaded", "path", path, "definitions", names)
	}

	return reg, nil
}

// typeSource selects a type by registered name or from a type document.
type typeSource struct {
	Name string
	File string
}

func (s typeSource) resolve(reg *dto.TypeRegistry) (dto.AnyType, error) {
	switch {
	case s.Name != "" && s.File != "":
		return dto.EmptyType(), fmt.Errorf("--type and --type-file are mutually exclusive")
	case s.Name != "":
		t, ok := reg.Lookup(s.Name)
		if !ok {
			return dto.EmptyType(), dto.NewError(dto.KindParse, "type", "unknown type %q", s.Name)
		}
		return t, nil
	case s.File != "":
		data, err := os.ReadFile(s.File)
		if err != nil {
			return dto.EmptyType(), fmt.Errorf("read type file: %w", err)
		}
		return dtojson.TypeFromJSON(reg, data)
	}
	return dto.EmptyType(), fmt.Errorf("a type is required: pass --type or --type-file")
}

func jsonOptions(cfg *config.Config, pretty bool) []dtojson.Option {
	if pretty || cfg.JSON.Pretty {
		return []dtojson.Option{dtojson.Indent(cfg.JSON.Indent)}
	}
	return nil
}

func ctypeOptions(cfg *config.Config) []ctype.Option {
	return []ctype.Option{ctype.WithStringSize(cfg.CType.StringSize)}
}
