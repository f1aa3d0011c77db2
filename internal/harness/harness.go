package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/roach88/stiprobe/internal/compiler"
	"github.com/roach88/stiprobe/internal/ir"
	stilog "github.com/roach88/stiprobe/internal/log"
	"github.com/roach88/stiprobe/internal/mapper"
	"github.com/roach88/stiprobe/internal/snapshot"
)

// Options customise Run. The zero value runs with the default driver, a
// fresh Differ, UUIDv7 instance IDs and no logging.
type Options struct {
	// Driver selects the SQLite driver for every instance.
	Driver string

	Logger      log.Interface
	IDGenerator mapper.IDGenerator

	// Differ is shared across Run calls when set.
	Differ *snapshot.Differ

	// FullDiff adds a structural snapshot diff to each report.
	FullDiff bool

	// Clock times each instance for the close log line. Defaults to
	// time.Now.
	Clock func() time.Time
}

// Harness runs the instances of one scenario in order.
type Harness struct {
	opts   Options
	logger log.Interface
	differ *snapshot.Differ
	now    func() time.Time
	specs  map[string][]ir.EntitySchema
}

// Run executes a scenario and returns its report.
//
// Execution flow per instance:
//  1. Init a mapper with the instance's entities
//  2. Refresh its database unless skip_refresh is set
//  3. Capture its metadata into the Differ
//  4. Run the forks
//  5. Close the mapper
//
// Mapper and store errors abort the run and are returned as-is, wrapped
// with the instance label. Failed expectations are collected in
// Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	h := &Harness{
		opts:   opts,
		logger: opts.Logger,
		differ: opts.Differ,
		now:    opts.Clock,
		specs:  make(map[string][]ir.EntitySchema),
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = stilog.Discard()
	}
	if h.differ == nil {
		h.differ = snapshot.New(snapshot.WithLogger(h.logger))
	}
	if scenario.Reset {
		h.differ.Reset()
	}

	h.logger.Infof("=== STARTING %s ===", scenario.Name)
	result := NewResult(scenario.Name)
	for i, inst := range scenario.Instances {
		h.logger.Infof("--- Initializing %s mapper ---", humanize.Ordinal(i+1))

		specs := inst.Specs
		if len(specs) == 0 {
			specs = scenario.Specs
		}
		report, err := h.runInstance(ctx, inst, specs, result)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", inst.Label, err)
		}
		result.Instances = append(result.Instances, *report)
	}
	h.logger.Infof("=== %s COMPLETED ===", scenario.Name)
	return result, nil
}

func (h *Harness) runInstance(ctx context.Context, inst Instance, specs []string, result *Result) (*InstanceReport, error) {
	entities, err := h.selectEntities(specs, inst.Entities)
	if err != nil {
		return nil, err
	}

	start := h.now()
	m, err := mapper.Init(ctx, mapper.Config{
		Entities:    entities,
		Driver:      h.opts.Driver,
		ContextName: inst.Label,
		IDGenerator: h.opts.IDGenerator,
		Logger:      h.logger,
	})
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			h.closeOnAbort(ctx, m, inst.Label)
		}
	}()

	if !inst.SkipRefresh {
		if err := m.Schema().RefreshDatabase(ctx); err != nil {
			return nil, err
		}
	}
	h.logger.Debugf("[%s] Mapper initialized successfully", inst.Label)

	report, err := h.capture(inst.Label, m)
	if err != nil {
		return nil, err
	}
	if inst.ExpectDelta != nil {
		if err := assertDelta(inst.Label+": delta", *inst.ExpectDelta, report.Delta); err != nil {
			result.AddError(err.Error())
		}
	}

	for i, fork := range inst.Forks {
		fr, err := h.runFork(ctx, m, fmt.Sprintf("%s: fork %d", inst.Label, i+1), fork, result)
		if err != nil {
			return nil, err
		}
		report.Forks = append(report.Forks, *fr)
	}

	closed = true
	if err := m.Close(ctx); err != nil {
		return nil, err
	}
	h.logger.Infof("[%s] Mapper closed - Total time: %.2fs", inst.Label, h.now().Sub(start).Seconds())
	return report, nil
}

type closer interface {
	Close(ctx context.Context) error
}

// closeOnAbort closes a mapper whose instance already failed. Close errors
// are logged at warn level.
func (h *Harness) closeOnAbort(ctx context.Context, m closer, label string) {
	if err := m.Close(ctx); err != nil {
		h.logger.WithError(err).Warnf("[%s] close after failed instance", label)
	}
}

// capture records m's metadata in the Differ and builds the report header.
func (h *Harness) capture(label string, m *mapper.Mapper) (*InstanceReport, error) {
	entities := snapshot.Entities(m.Metadata().GetAll())
	delta, prev := h.differ.CaptureWithPrevious(entities, label)
	cur := snapshot.Take(entities)

	fingerprint, err := cur.Fingerprint()
	if err != nil {
		return nil, err
	}
	schemaHash, err := ir.SchemaHash(m.Entities())
	if err != nil {
		return nil, err
	}

	report := &InstanceReport{
		Label:       label,
		InstanceID:  m.ID(),
		SchemaHash:  schemaHash,
		Fingerprint: fingerprint,
		Entities:    cur.ClassNames(),
		Delta:       delta.Strings(),
	}
	if h.opts.FullDiff && len(prev) > 0 {
		diff, err := snapshot.FullDiff(prev, cur)
		if err != nil {
			return nil, err
		}
		report.FullDiff = diff
	}
	return report, nil
}

func (h *Harness) runFork(ctx context.Context, m *mapper.Mapper, where string, fork Fork, result *Result) (*ForkReport, error) {
	em := m.Fork()
	report := &ForkReport{}

	persisted := make([]*mapper.Entity, 0, len(fork.Persist))
	for _, step := range fork.Persist {
		e := &mapper.Entity{Class: step.Entity, Fields: step.Fields}
		if err := em.Persist(e); err != nil {
			return nil, err
		}
		persisted = append(persisted, e)
	}
	if len(persisted) > 0 {
		if err := em.Flush(ctx); err != nil {
			return nil, err
		}
		for _, e := range persisted {
			report.Persisted = append(report.Persisted, EntityRef{Class: e.Class, ID: e.ID})
		}
		h.logger.Debugf("[%s] persisted %d entities", m.ContextName(), len(persisted))
	}

	for i, step := range fork.Find {
		stepWhere := fmt.Sprintf("%s: find %d", where, i+1)
		record := FoundRecord{Query: step.Entity, Where: step.Where}

		e, err := em.FindOne(ctx, step.Entity, step.Where)
		switch {
		case errors.Is(err, mapper.ErrNotFound):
			if !step.Absent {
				result.AddError((&AssertionError{
					Where:    stepWhere,
					Expected: "a " + step.Entity,
					Actual:   "nothing",
				}).Error())
			}
		case err != nil:
			return nil, err
		default:
			record.Entity = &EntityRef{Class: e.Class, ID: e.ID}
			record.Fields = e.Fields
			if step.Absent {
				result.AddError((&AssertionError{
					Where:    stepWhere,
					Expected: "nothing",
					Actual:   fmt.Sprintf("%s#%d", e.Class, e.ID),
				}).Error())
			} else if err := assertFound(stepWhere, step, e); err != nil {
				result.AddError(err.Error())
			}
		}
		report.Found = append(report.Found, record)
	}
	return report, nil
}

// selectEntities compiles specs once per path set and picks names in
// order.
func (h *Harness) selectEntities(specs []string, names []string) ([]ir.EntitySchema, error) {
	key := strings.Join(specs, "\x00")
	all, ok := h.specs[key]
	if !ok {
		compiled, err := compiler.CompileFiles(specs...)
		if err != nil {
			return nil, err
		}
		if errs := compiler.Validate(compiled); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return nil, fmt.Errorf("invalid specs: %s", strings.Join(msgs, "; "))
		}
		h.specs[key] = compiled
		all = compiled
	}

	idx := ir.Index(all)
	out := make([]ir.EntitySchema, 0, len(names))
	for _, name := range names {
		s, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("entity %q is not declared in %s", name, strings.Join(specs, ", "))
		}
		out = append(out, s)
	}
	return out, nil
}
