// Package load ingests sqlt project files: a YAML document declaring
// entities, their query specs and free-standing raw operations. Loading
// resolves sql_file references relative to the project file in one
// synchronous pass; compilation itself stays pure.
package load

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/compiler"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/schema"
)

// FieldDef is the YAML form of a schema field.
type FieldDef struct {
	Name      string      `yaml:"name"`
	Type      schema.Type `yaml:"type"`
	Nullable  bool        `yaml:"nullable"`
	Generated bool        `yaml:"generated"`
	Lock      bool        `yaml:"lock"`
}

// EntityDef is the YAML form of an entity and its specs.
type EntityDef struct {
	Table  string          `yaml:"table"`
	Fields []FieldDef      `yaml:"fields"`
	Specs  []compiler.Spec `yaml:"specs"`
}

// Project is a parsed project file.
type Project struct {
	// Dialect is the project-wide default; specs may override it.
	Dialect  dialect.Dialect `yaml:"dialect"`
	Entities []EntityDef     `yaml:"entities"`
	// Specs holds free-standing raw SQL operations.
	Specs []compiler.Spec `yaml:"specs"`
}

// Load reads and parses a project file and resolves every sql_file
// reference relative to the file's directory.
func Load(path string) (*Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sqlt: reading project file: %w", err)
	}
	var p Project
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("sqlt: parsing project file %s: %w", path, err)
	}
	root := filepath.Dir(path)
	for i := range p.Entities {
		for j := range p.Entities[i].Specs {
			if err := resolveSQLFile(root, &p.Entities[i].Specs[j]); err != nil {
				return nil, err
			}
		}
	}
	for i := range p.Specs {
		if err := resolveSQLFile(root, &p.Specs[i]); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func resolveSQLFile(root string, spec *compiler.Spec) error {
	if spec.SQLFile == "" {
		return nil
	}
	if spec.SQL != "" {
		return sqlt.NewValidateError("spec declares both sql and sql_file", spec.Name)
	}
	raw, err := os.ReadFile(filepath.Join(root, spec.SQLFile))
	if err != nil {
		return fmt.Errorf("sqlt: reading %s for spec %s: %w", spec.SQLFile, spec.Name, err)
	}
	spec.SQL = string(raw)
	spec.SQLFile = ""
	return nil
}

// EntityResult pairs a built entity with its compiled specs.
type EntityResult struct {
	Entity   *schema.Entity
	Compiled []*compiler.Compiled
}

// Result is the outcome of compiling a whole project.
type Result struct {
	Entities []EntityResult
	// Freestanding holds compiled raw operations declared outside any
	// entity.
	Freestanding []*compiler.Compiled
}

// Compile builds every entity and compiles every spec, entities in
// parallel. Results keep the project file's declaration order regardless
// of completion order.
func (p *Project) Compile() (*Result, error) {
	out := &Result{Entities: make([]EntityResult, len(p.Entities))}
	var g errgroup.Group
	for i := range p.Entities {
		g.Go(func() error {
			res, err := p.compileEntity(&p.Entities[i])
			if err != nil {
				return err
			}
			out.Entities[i] = *res
			return nil
		})
	}
	var (
		mu   sync.Mutex
		free = make(map[int]*compiler.Compiled, len(p.Specs))
	)
	for i := range p.Specs {
		g.Go(func() error {
			spec := p.withDefaults(p.Specs[i])
			compiled, err := compiler.Compile(nil, spec)
			if err != nil {
				return err
			}
			mu.Lock()
			free[i] = compiled
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	idx := make([]int, 0, len(free))
	for i := range free {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		out.Freestanding = append(out.Freestanding, free[i])
	}
	return out, nil
}

func (p *Project) compileEntity(def *EntityDef) (*EntityResult, error) {
	fields := make([]schema.Field, len(def.Fields))
	for i, f := range def.Fields {
		fields[i] = schema.Field{
			Name:        f.Name,
			Type:        f.Type,
			Nullable:    f.Nullable,
			Generated:   f.Generated,
			LockCounter: f.Lock,
		}
	}
	entity, err := schema.New(def.Table, fields...)
	if err != nil {
		return nil, err
	}
	res := &EntityResult{Entity: entity, Compiled: make([]*compiler.Compiled, len(def.Specs))}
	for i, spec := range def.Specs {
		compiled, err := compiler.Compile(entity, p.withDefaults(spec))
		if err != nil {
			return nil, err
		}
		res.Compiled[i] = compiled
	}
	return res, nil
}

// withDefaults fills the project-wide dialect into specs that do not
// declare their own.
func (p *Project) withDefaults(spec compiler.Spec) compiler.Spec {
	if spec.Dialect == "" {
		spec.Dialect = p.Dialect
	}
	return spec
}
