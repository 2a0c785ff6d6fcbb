// Package chain keeps a form's dependent selections consistent with one
// another while their option lists load asynchronously.
//
// A Chain is a plain state machine. It never performs I/O itself: operations
// that need options return Requests, the caller executes them (on whatever
// async mechanism its UI uses) and hands the Results back to Apply. Every
// stage carries a request epoch; a Result whose epoch is no longer current is
// discarded, so a slow response can never overwrite a newer one.
package chain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option is a selectable value/label pair.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Fetcher loads the options of a stage given the values of its dependencies,
// in DependsOn order.
type Fetcher interface {
	FetchOptions(ctx context.Context, upstream []string) ([]Option, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, upstream []string) ([]Option, error)

func (f FetcherFunc) FetchOptions(ctx context.Context, upstream []string) ([]Option, error) {
	return f(ctx, upstream)
}

// Stage declares one dependent selection step.
type Stage struct {
	Key       string
	Label     string
	DependsOn []string
	Fetch     Fetcher
	// Less, when set, orders loaded options. Otherwise they keep the order
	// the fetcher returned them in.
	Less     func(a, b Option) bool
	Required bool
}

// DisplayLabel returns Label, or the key with its first letter upper-cased.
func (s Stage) DisplayLabel() string {
	if l := strings.TrimSpace(s.Label); l != "" {
		return l
	}
	if s.Key == "" {
		return ""
	}
	return strings.ToUpper(s.Key[:1]) + s.Key[1:]
}

// Placeholder is the empty-valued option every stage list starts with.
func (s Stage) Placeholder() Option {
	return Option{Value: "", Label: "Select " + s.DisplayLabel()}
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// SelectionState maps stage keys to chosen values. Unset stages map to "".
type SelectionState map[string]string

// Request is a pending options fetch for one stage, tagged with the epoch the
// stage had when it was issued.
type Request struct {
	Stage    string
	Epoch    uint64
	Upstream []string

	fetch Fetcher
}

// Exec runs the fetch. It is safe to call off the event loop.
func (r Request) Exec(ctx context.Context) Result {
	if r.fetch == nil {
		return Result{Request: r, Err: fmt.Errorf("%w: %s has no fetcher", ErrUnknownStage, r.Stage)}
	}
	opts, err := r.fetch.FetchOptions(ctx, append([]string(nil), r.Upstream...))
	return Result{Request: r, Options: opts, Err: err}
}

// Result is the outcome of executing a Request.
type Result struct {
	Request Request
	Options []Option
	Err     error
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-facing message produced while applying a Result.
type Notice struct {
	Level   Level
	Stage   string
	Message string
	Err     error
}

// Outcome describes what Apply did with a Result.
type Outcome struct {
	Stage   string
	Applied bool
	Stale   bool
	Notice  *Notice
}

type stageState struct {
	stage   Stage
	index   int
	value   string
	options []Option
	status  Status
	epoch   uint64
}

// Chain is the dependent selector chain of one form instance.
// It is not safe for concurrent use.
type Chain struct {
	id     string
	stages []*stageState
	byKey  map[string]*stageState
	graph  *graph
	log    *zap.Logger
}

type ChainOption func(*Chain)

func WithLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

// WithID sets the form instance id used in logs. Defaults to a random uuid.
func WithID(id string) ChainOption {
	return func(c *Chain) {
		if strings.TrimSpace(id) != "" {
			c.id = id
		}
	}
}

// New validates and registers the stages. Dependencies must be declared
// before the stages that use them, which also rules out cycles.
func New(stages []Stage, opts ...ChainOption) (*Chain, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("chain: no stages")
	}
	c := &Chain{
		id:    uuid.NewString(),
		byKey: make(map[string]*stageState, len(stages)),
		graph: newGraph(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	for i, s := range stages {
		key := strings.TrimSpace(s.Key)
		if key == "" {
			return nil, fmt.Errorf("chain: stage[%d]: key is required", i)
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("chain: stage %q declared twice", key)
		}
		if s.Fetch == nil {
			return nil, fmt.Errorf("chain: stage %q: fetcher is required", key)
		}
		s.Key = key
		s.DependsOn = append([]string(nil), s.DependsOn...)
		for _, dep := range s.DependsOn {
			parent, ok := c.byKey[dep]
			if !ok {
				return nil, fmt.Errorf("chain: stage %q depends on %q, which is not declared before it", key, dep)
			}
			c.graph.addDependency(i, parent.index)
		}
		st := &stageState{stage: s, index: i, status: StatusIdle}
		st.options = []Option{s.Placeholder()}
		c.stages = append(c.stages, st)
		c.byKey[key] = st
	}
	c.log = c.log.With(zap.String("form_id", c.id))
	return c, nil
}

// ID returns the form instance id.
func (c *Chain) ID() string { return c.id }

// Init resets every stage to its placeholder and returns the loads of the
// stages that have no dependencies. Dependent stages start disabled.
func (c *Chain) Init() []Request {
	var reqs []Request
	for _, st := range c.stages {
		st.value = ""
		c.reset(st)
	}
	for _, st := range c.stages {
		if len(st.stage.DependsOn) == 0 {
			reqs = append(reqs, c.issue(st))
		}
	}
	c.log.Debug("chain initialised", zap.Int("stages", len(c.stages)), zap.Int("requests", len(reqs)))
	return reqs
}

// Select records a user's choice for key. Every dependent stage is cleared,
// disabled and has its epoch bumped. When value is non-empty, the immediate
// children whose dependencies are now all set are returned as loads.
// Re-selecting the current value is a no-op.
func (c *Chain) Select(key, value string) ([]Request, error) {
	st, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if st.value == value {
		return nil, nil
	}
	if value != "" && st.status != StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrStageDisabled, key, st.status)
	}
	st.value = value
	c.cascade(st)
	if value == "" {
		return nil, nil
	}

	var reqs []Request
	for _, idx := range c.graph.children(st.index) {
		child := c.stages[idx]
		if c.missingDependency(child) != nil {
			continue
		}
		reqs = append(reqs, c.issue(child))
	}
	c.log.Debug("stage selected",
		zap.String("stage", key),
		zap.String("value", value),
		zap.Int("requests", len(reqs)))
	return reqs, nil
}

// Reload returns a fresh load for key under its current epoch. All of the
// stage's dependencies must be set.
func (c *Chain) Reload(key string) (Request, error) {
	st, err := c.lookup(key)
	if err != nil {
		return Request{}, err
	}
	if missing := c.missingDependency(st); missing != nil {
		return Request{}, &ValidationError{Stage: missing.stage.Key, Label: missing.stage.DisplayLabel()}
	}
	return c.issue(st), nil
}

// Apply delivers a Result. Results from a superseded epoch are dropped. A
// failed load clears the stage's value and its dependents, as does a list
// that no longer offers the current value.
func (c *Chain) Apply(res Result) Outcome {
	key := res.Request.Stage
	out := Outcome{Stage: key}
	st, ok := c.byKey[key]
	if !ok {
		c.log.Warn("result for unknown stage", zap.String("stage", key))
		return out
	}
	if res.Request.Epoch != st.epoch {
		c.log.Debug("discarding stale result",
			zap.String("stage", key),
			zap.Uint64("epoch", res.Request.Epoch),
			zap.Uint64("current", st.epoch))
		out.Stale = true
		return out
	}
	out.Applied = true
	label := strings.ToLower(st.stage.DisplayLabel())

	if res.Err != nil {
		st.status = StatusFailed
		st.options = []Option{st.stage.Placeholder()}
		c.log.Warn("stage load failed", zap.String("stage", key), zap.Error(res.Err))
		// a failed load leaves no value behind
		if st.value != "" {
			st.value = ""
			c.cascade(st)
		}
		out.Notice = &Notice{
			Level:   LevelError,
			Stage:   key,
			Message: fmt.Sprintf("Error loading %s options: %v", label, res.Err),
			Err:     res.Err,
		}
		return out
	}

	loaded := append([]Option(nil), res.Options...)
	if st.stage.Less != nil {
		sort.SliceStable(loaded, func(i, j int) bool { return st.stage.Less(loaded[i], loaded[j]) })
	}
	st.options = append([]Option{st.stage.Placeholder()}, loaded...)
	st.status = StatusReady

	if st.value != "" && !containsValue(loaded, st.value) {
		c.log.Debug("selected value no longer offered", zap.String("stage", key), zap.String("value", st.value))
		st.value = ""
		c.cascade(st)
	}
	if len(loaded) == 0 {
		out.Notice = &Notice{
			Level:   LevelInfo,
			Stage:   key,
			Message: fmt.Sprintf("No %s options available", label),
		}
	}
	return out
}

// Validate checks that the given stages, or every Required stage when no keys
// are given, have a value. The first unset stage in declaration order is
// reported as a *ValidationError.
func (c *Chain) Validate(keys ...string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, err := c.lookup(k); err != nil {
			return err
		}
		want[k] = true
	}
	for _, st := range c.stages {
		check := st.stage.Required
		if len(keys) > 0 {
			check = want[st.stage.Key]
		}
		if check && st.value == "" {
			return &ValidationError{Stage: st.stage.Key, Label: st.stage.DisplayLabel()}
		}
	}
	return nil
}

// State returns a copy of the current selections.
func (c *Chain) State() SelectionState {
	out := make(SelectionState, len(c.stages))
	for _, st := range c.stages {
		out[st.stage.Key] = st.value
	}
	return out
}

// Stages returns the registered stages in declaration order.
func (c *Chain) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	for i, st := range c.stages {
		out[i] = st.stage
	}
	return out
}

func (c *Chain) Stage(key string) (Stage, bool) {
	st, ok := c.byKey[key]
	if !ok {
		return Stage{}, false
	}
	return st.stage, true
}

func (c *Chain) Value(key string) string {
	if st, ok := c.byKey[key]; ok {
		return st.value
	}
	return ""
}

// Options returns the stage's current list, placeholder first.
func (c *Chain) Options(key string) []Option {
	if st, ok := c.byKey[key]; ok {
		return append([]Option(nil), st.options...)
	}
	return nil
}

// Enabled reports whether the stage accepts a selection.
func (c *Chain) Enabled(key string) bool {
	return c.Status(key) == StatusReady
}

func (c *Chain) Status(key string) Status {
	if st, ok := c.byKey[key]; ok {
		return st.status
	}
	return ""
}

func (c *Chain) Epoch(key string) uint64 {
	if st, ok := c.byKey[key]; ok {
		return st.epoch
	}
	return 0
}

func (c *Chain) lookup(key string) (*stageState, error) {
	st, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, key)
	}
	return st, nil
}

// cascade clears every transitive dependent of st.
func (c *Chain) cascade(st *stageState) {
	for _, idx := range c.graph.dependents(st.index) {
		d := c.stages[idx]
		d.value = ""
		c.reset(d)
	}
}

// reset puts a stage back to a disabled placeholder and invalidates any
// in-flight load for it.
func (c *Chain) reset(st *stageState) {
	st.options = []Option{st.stage.Placeholder()}
	st.status = StatusIdle
	st.epoch++
}

func (c *Chain) issue(st *stageState) Request {
	upstream := make([]string, 0, len(st.stage.DependsOn))
	for _, dep := range st.stage.DependsOn {
		upstream = append(upstream, c.byKey[dep].value)
	}
	st.status = StatusLoading
	return Request{
		Stage:    st.stage.Key,
		Epoch:    st.epoch,
		Upstream: upstream,
		fetch:    st.stage.Fetch,
	}
}

func (c *Chain) missingDependency(st *stageState) *stageState {
	for _, idx := range c.graph.parents(st.index) {
		if p := c.stages[idx]; p.value == "" {
			return p
		}
	}
	return nil
}

func containsValue(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
