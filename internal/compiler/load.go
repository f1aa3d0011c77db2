package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/stiprobe/internal/ir"
)

// LoadDir builds the CUE package in dir and compiles every entity it
// declares, in declaration order.
func LoadDir(dir string) ([]ir.EntitySchema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("specs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileEntities(value)
}

// CompileFiles compiles each file on its own and concatenates the entities
// in file order.
func CompileFiles(paths ...string) ([]ir.EntitySchema, error) {
	ctx := cuecontext.New()
	var all []ir.EntitySchema
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read spec file: %w", err)
		}
		value := ctx.CompileBytes(data, cue.Filename(filepath.Base(path)))
		if err := value.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		schemas, err := compileEntities(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, schemas...)
	}
	return all, nil
}

// CompileSource compiles entities from CUE source text.
func CompileSource(src string) ([]ir.EntitySchema, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileEntities(value)
}

func compileEntities(value cue.Value) ([]ir.EntitySchema, error) {
	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{Field: "entity", Message: "no entity declarations found", Pos: value.Pos()}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var schemas []ir.EntitySchema
	for iter.Next() {
		schema, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *schema)
	}
	return schemas, nil
}
