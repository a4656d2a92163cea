package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/jsontree"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/schema"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/testutil"
	"github.com/roach88/tempo/internal/tid"
)

// RootLabel names the root dataset in traces.
const RootLabel = "root"

// Harness executes scenario steps against one source.
type Harness struct {
	store  *store.Store
	source *dataset.Source
	types  *meta.Registry
	logger *slog.Logger

	// ids maps labels to ids and labels maps them back.
	ids    map[string]tid.ID
	labels map[tid.ID]string

	// minted lists version labels in mint order.
	minted []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic id
// generator. Expectation failures are reported in the result; an error is
// returned only when the scenario itself cannot be executed, such as an
// unknown label or type.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	types := meta.NewRegistry()
	if scenario.Schema != "" {
		var err error
		if types, err = schema.CompileString(scenario.Schema); err != nil {
			return nil, fmt.Errorf("failed to compile schema: %w", err)
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewSteppingClock(testutil.Epoch, time.Second)
	opts := []dataset.Option{
		dataset.WithGenerator(testutil.NewGenerator(clock)),
		dataset.WithLogger(logger),
	}
	if scenario.Prefetch > 0 {
		opts = append(opts, dataset.WithPrefetch(scenario.Prefetch))
	}
	src, err := dataset.New(st, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	h := &Harness{
		store:  st,
		source: src,
		types:  types,
		logger: logger,
		ids:    map[string]tid.ID{RootLabel: tid.Empty},
		labels: map[tid.ID]string{tid.Empty: RootLabel},
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, i+1, &step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
		result.AddTrace(ev)
		for _, msg := range checkExpect(&step, ev) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Seq, step.Op, msg))
		}
	}

	for _, name := range h.types.Names() {
		n, err := st.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		result.Versions[name] = n
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.minted) {
		result.AddError(msg)
	}
	return result, nil
}

// scenarioDefect marks a step error caused by the scenario itself rather
// than by the operation under test.
type scenarioDefect struct{ err error }

func (d *scenarioDefect) Error() string { return d.err.Error() }
func (d *scenarioDefect) Unwrap() error { return d.err }

func defect(err error) error { return &scenarioDefect{err: err} }

// execute runs one step. Errors from the source become the event outcome;
// the returned error is for scenario defects only.
func (h *Harness) execute(ctx context.Context, seq int, step *Step) (TraceEvent, error) {
	ev := TraceEvent{Seq: seq, Op: step.Op, Dataset: step.Dataset, Type: step.Type, Key: step.Key, Cutoff: step.Cutoff}

	var err error
	switch step.Op {
	case OpCreate:
		err = h.create(ctx, step, &ev)
	case OpSave:
		err = h.save(ctx, step, &ev)
	case OpDelete:
		err = h.delete(ctx, step, &ev)
	case OpLoad:
		err = h.load(ctx, step, &ev)
	case OpLoadID:
		err = h.loadID(ctx, step, &ev)
	case OpLookup:
		err = h.lookup(ctx, step, &ev)
	case OpDetail:
		err = h.detail(ctx, step, &ev)
	case OpHistory:
		err = h.history(ctx, step, &ev)
	default:
		err = defect(fmt.Errorf("unknown op %q", step.Op))
	}
	var d *scenarioDefect
	if errors.As(err, &d) {
		return ev, d.err
	}

	switch {
	case err != nil:
		code := ir.CodeOf(err)
		if code == "" {
			code = "ERROR"
		}
		ev.Outcome = string(code)
		h.logger.Debug("step failed", "seq", seq, "op", step.Op, "error", err)
	case ev.Outcome == "":
		ev.Outcome = "ok"
	}
	return ev, nil
}

func (h *Harness) create(ctx context.Context, step *Step, ev *TraceEvent) error {
	opts := dataset.CreateOptions{NonTemporal: step.NonTemporal}
	if step.Parent != "" {
		parent, err := h.resolve(step.Parent)
		if err != nil {
			return defect(err)
		}
		opts.Parent = parent
		ev.Dataset = step.Parent
	}
	if step.Imports != nil {
		opts.Imports = []tid.ID{}
		for _, label := range step.Imports {
			id, err := h.resolve(label)
			if err != nil {
				return defect(err)
			}
			opts.Imports = append(opts.Imports, id)
		}
	}
	ds, opErr := h.source.CreateDataset(ctx, step.Name, opts)
	if opErr != nil {
		return opErr
	}
	label := step.As
	if label == "" {
		label = step.Name
	}
	h.bind(label, ds.ID)
	ev.ID = label
	return nil
}

func (h *Harness) save(ctx context.Context, step *Step, ev *TraceEvent) error {
	t, into, err := h.typeAndDataset(step)
	if err != nil {
		return defect(err)
	}
	data, err := json.Marshal(step.Record)
	if err != nil {
		return defect(fmt.Errorf("record: %w", err))
	}
	obj, opErr := objtree.Decode(t, jsontree.Decode(data, t.Name))
	if opErr != nil {
		return opErr
	}
	k, opErr := key.Format(t, obj)
	if opErr != nil {
		return opErr
	}
	ev.Key = k

	id, opErr := h.source.Save(ctx, t, obj, into)
	if opErr != nil {
		return opErr
	}
	ev.ID = h.mint(step, ev.Seq, id)
	return nil
}

func (h *Harness) delete(ctx context.Context, step *Step, ev *TraceEvent) error {
	t, in, err := h.typeAndDataset(step)
	if err != nil {
		return defect(err)
	}
	id, opErr := h.source.Delete(ctx, t, step.Key, in)
	if opErr != nil {
		return opErr
	}
	ev.ID = h.mint(step, ev.Seq, id)
	return nil
}

func (h *Harness) load(ctx context.Context, step *Step, ev *TraceEvent) error {
	t, from, err := h.typeAndDataset(step)
	if err != nil {
		return defect(err)
	}
	cutoff, err := h.resolveOpt(step.Cutoff)
	if err != nil {
		return defect(err)
	}
	obj, opErr := h.source.LoadOrNull(ctx, t, step.Key, from, cutoff)
	if opErr != nil {
		return opErr
	}
	return h.found(t, obj, ev)
}

func (h *Harness) loadID(ctx context.Context, step *Step, ev *TraceEvent) error {
	t, ok := h.types.Lookup(step.Type)
	if !ok {
		return defect(fmt.Errorf("unknown type %q", step.Type))
	}
	id, err := h.resolve(step.ID)
	if err != nil {
		return defect(err)
	}
	ev.ID = step.ID
	obj, opErr := h.source.LoadByID(ctx, t, id)
	if opErr != nil {
		return opErr
	}
	return h.found(t, obj, ev)
}

// found records a load outcome.
func (h *Harness) found(t *meta.Type, obj any, ev *TraceEvent) error {
	if obj == nil {
		ev.Outcome = "null"
		return nil
	}
	w := jsontree.NewWriter()
	if err := objtree.Walk(t, obj, w); err != nil {
		return err
	}
	ev.Outcome = "found"
	ev.Record = json.RawMessage(w.Bytes())
	return nil
}

func (h *Harness) lookup(ctx context.Context, step *Step, ev *TraceEvent) error {
	start, err := h.resolve(step.Dataset)
	if err != nil {
		return defect(err)
	}
	cutoff, err := h.resolveOpt(step.Cutoff)
	if err != nil {
		return defect(err)
	}
	list, opErr := h.source.LookupList(ctx, start, cutoff)
	if opErr != nil {
		return opErr
	}
	ev.Lookup = []string{}
	for _, id := range list {
		ev.Lookup = append(ev.Lookup, h.label(id))
	}
	return nil
}

func (h *Harness) detail(ctx context.Context, step *Step, ev *TraceEvent) error {
	ds, err := h.resolve(step.Dataset)
	if err != nil {
		return defect(err)
	}
	d := &dataset.Detail{DatasetID: ds, ReadOnly: step.ReadOnly}
	if d.CutoffTime, err = h.resolveOpt(step.Cutoff); err != nil {
		return defect(err)
	}
	if d.ImportsCutoffTime, err = h.resolveOpt(step.ImportsCutoff); err != nil {
		return defect(err)
	}
	id, opErr := h.source.SaveDetail(ctx, d)
	if opErr != nil {
		return opErr
	}
	ev.ID = h.mint(step, ev.Seq, id)
	return nil
}

func (h *Harness) history(ctx context.Context, step *Step, ev *TraceEvent) error {
	t, in, err := h.typeAndDataset(step)
	if err != nil {
		return defect(err)
	}
	versions, opErr := h.source.History(ctx, t.Name, step.Key, in)
	if opErr != nil {
		return opErr
	}
	ev.Lookup = []string{}
	for _, v := range versions {
		label := h.label(v.ID)
		if v.Deleted {
			label += " (deleted)"
		}
		ev.Lookup = append(ev.Lookup, label)
	}
	return nil
}

func (h *Harness) typeAndDataset(step *Step) (*meta.Type, tid.ID, error) {
	t, ok := h.types.Lookup(step.Type)
	if !ok {
		return nil, tid.Empty, fmt.Errorf("unknown type %q", step.Type)
	}
	ds, err := h.resolve(step.Dataset)
	if err != nil {
		return nil, tid.Empty, err
	}
	return t, ds, nil
}

// mint labels a freshly minted version id.
func (h *Harness) mint(step *Step, seq int, id tid.ID) string {
	label := step.As
	if label == "" {
		label = fmt.Sprintf("v%d", seq)
	}
	h.bind(label, id)
	h.minted = append(h.minted, label)
	return label
}

func (h *Harness) bind(label string, id tid.ID) {
	h.ids[label] = id
	h.labels[id] = label
}

// resolve maps a label or temporal id text to an id.
func (h *Harness) resolve(label string) (tid.ID, error) {
	if id, ok := h.ids[label]; ok {
		return id, nil
	}
	if len(label) == tid.TextLen {
		return tid.Parse(label)
	}
	return tid.Empty, fmt.Errorf("unknown label %q", label)
}

func (h *Harness) resolveOpt(label string) (*tid.ID, error) {
	if label == "" {
		return nil, nil
	}
	id, err := h.resolve(label)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Harness) label(id tid.ID) string {
	if l, ok := h.labels[id]; ok {
		return l
	}
	return id.String()
}
