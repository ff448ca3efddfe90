package cueschema

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/supdto/internal/dto"
)

// Register converts every top-level definition of v and registers it in reg
// under the definition name without the leading '#'. It returns the
// registered names in declaration order.
func Register(reg *dto.TypeRegistry, v cue.Value) ([]string, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	iter, err := v.Fields(cue.Definitions(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var names []string
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsDefinition() {
			continue
		}
		name := strings.TrimPrefix(sel.String(), "#")
		t, err := typeFromValue(iter.Value(), name, "")
		if err != nil {
			return names, err
		}
		if err := reg.RegisterAlias(name, t); err != nil {
			return names, fmt.Errorf("register #%s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// LoadSource compiles CUE source and registers its definitions. filename
// only labels error positions.
func LoadSource(reg *dto.TypeRegistry, filename string, src []byte) ([]string, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Register(reg, v)
}

// LoadFile reads a single CUE file and registers its definitions.
func LoadFile(reg *dto.TypeRegistry, path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return LoadSource(reg, path, src)
}

// LoadDir loads the CUE package in dir and registers its definitions.
func LoadDir(reg *dto.TypeRegistry, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	return Register(reg, v)
}
