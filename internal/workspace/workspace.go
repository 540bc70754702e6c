// Package workspace holds the user's fields and runs them against the
// completion proxy. A Workspace is an explicit state container: create one per
// process and pass it where it is needed.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/gptwork/internal/client"
	"github.com/efebarandurmaz/gptwork/internal/logging"
	"github.com/efebarandurmaz/gptwork/internal/observability"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

// DefaultModel is the model selected for a fresh workspace.
const DefaultModel = "gpt-4o"

const (
	msgFieldAdded    = "Field added"
	msgFieldRemoved  = "Field removed"
	msgRequestFailed = "Request failed"
	msgCopied        = "Copied to clipboard"
	msgCopyFailed    = "Copy failed"

	maxNotices = 100
)

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrRunInFlight   = errors.New("field is already running")
)

// Field is one instruction/input pair and the last answer it produced.
type Field struct {
	ID          string `json:"id" yaml:"id,omitempty" toml:"id,omitempty"`
	Label       string `json:"label" yaml:"label" toml:"label"`
	Instruction string `json:"instruction" yaml:"instruction" toml:"instruction"`
	Input       string `json:"input" yaml:"input" toml:"input"`
	Output      string `json:"output" yaml:"output,omitempty" toml:"output,omitempty"`
}

// State is what gets persisted. Run status is never stored.
type State struct {
	APIBase string  `json:"apiBase"`
	Model   string  `json:"model"`
	Fields  []Field `json:"fields"`
}

// DefaultFields returns the three preset fields of a fresh workspace.
func DefaultFields() []Field {
	return []Field{
		{ID: uuid.NewString(), Label: "Field 1", Instruction: "You are a precise rewriter. Improve clarity and keep meaning."},
		{ID: uuid.NewString(), Label: "Field 2", Instruction: "Summarize the text in 3 bullet points. Keep it factual and concise."},
		{ID: uuid.NewString(), Label: "Field 3", Instruction: "Translate the text to French. Preserve technical terms in English."},
	}
}

func DefaultState(apiBase string) State {
	return State{APIBase: apiBase, Model: DefaultModel, Fields: DefaultFields()}
}

type RunState string

const (
	RunIdle    RunState = "idle"
	RunPending RunState = "pending"
	RunSuccess RunState = "success"
	RunError   RunState = "error"
)

// Status is the runtime state of a field's most recent run.
type Status struct {
	State    RunState
	Err      string
	Duration time.Duration
}

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a short user-facing message.
type Notice struct {
	Time     time.Time
	Severity Severity
	FieldID  string
	Message  string
}

// Completer sends one completion request. *client.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req api.CompletionRequest) (string, error)
}

type Options struct {
	Store Store
	// APIBase is used when no stored state names one.
	APIBase string
	// NewClient builds the completer for the current API base. Defaults to
	// client.New.
	NewClient func(apiBase string) Completer
	Log       logrus.FieldLogger
	Audit     *observability.AuditLogger
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu      sync.Mutex
	state   State
	status  map[string]Status
	notices []Notice

	store     Store
	newClient func(apiBase string) Completer
	log       logrus.FieldLogger
	audit     *observability.AuditLogger

	wg sync.WaitGroup
}

// New loads the workspace from the store, falling back to the default state.
func New(opts Options) (*Workspace, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.NewClient == nil {
		opts.NewClient = func(apiBase string) Completer { return client.New(apiBase) }
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Audit == nil {
		opts.Audit = observability.NopAuditLogger()
	}

	w := &Workspace{
		status:    make(map[string]Status),
		store:     opts.Store,
		newClient: opts.NewClient,
		log:       opts.Log,
		audit:     opts.Audit,
	}

	st, err := w.load(opts.APIBase)
	if err != nil {
		return nil, err
	}
	w.state = st
	return w, nil
}

func (w *Workspace) load(apiBase string) (State, error) {
	st := DefaultState(apiBase)

	raw, err := w.store.Get(StateKey)
	if errors.Is(err, ErrNoValue) {
		return st, nil
	}
	if errors.Is(err, ErrCorruptStore) {
		w.log.WithError(err).Warn("ignoring unreadable workspace store")
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("load workspace: %w", err)
	}

	var saved State
	if err := json.Unmarshal(raw, &saved); err != nil {
		w.log.WithError(err).Warn("ignoring unreadable workspace state")
		return st, nil
	}
	if saved.APIBase != "" {
		st.APIBase = saved.APIBase
	}
	if saved.Model != "" {
		st.Model = saved.Model
	}
	if len(saved.Fields) > 0 {
		st.Fields = normalizeFields(saved.Fields)
	}
	return st, nil
}

// normalizeFields gives every field a unique ID and a label.
func normalizeFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.ID == "" || seen[f.ID] {
			f.ID = uuid.NewString()
		}
		seen[f.ID] = true
		if strings.TrimSpace(f.Label) == "" {
			f.Label = fmt.Sprintf("Field %d", i+1)
		}
		out[i] = f
	}
	return out
}

func (w *Workspace) saveLocked() error {
	data, err := json.Marshal(w.state)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	if err := w.store.Put(StateKey, data); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

func (w *Workspace) notifyLocked(sev Severity, fieldID, msg string) {
	w.notices = append(w.notices, Notice{Time: time.Now(), Severity: sev, FieldID: fieldID, Message: msg})
	if len(w.notices) > maxNotices {
		w.notices = w.notices[len(w.notices)-maxNotices:]
	}
}

// CopyOutput hands the field's output (possibly empty) to write, typically
// a clipboard writer, and raises a notice either way.
func (w *Workspace) CopyOutput(id string, write func(string) error) error {
	f, err := w.Field(id)
	if err != nil {
		return err
	}

	werr := write(f.Output)

	w.mu.Lock()
	defer w.mu.Unlock()
	if werr != nil {
		w.notifyLocked(SeverityError, id, msgCopyFailed)
		w.log.WithError(werr).WithField("field", id).Warn("copy output failed")
		return fmt.Errorf("copy output: %w", werr)
	}
	w.notifyLocked(SeveritySuccess, id, msgCopied)
	return nil
}

func (w *Workspace) indexLocked(id string) int {
	for i, f := range w.state.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// State returns a copy of the persisted state.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.state
	st.Fields = append([]Field(nil), w.state.Fields...)
	return st
}

func (w *Workspace) Fields() []Field {
	return w.State().Fields
}

func (w *Workspace) Field(id string) (Field, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexLocked(id)
	if i < 0 {
		return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	return w.state.Fields[i], nil
}

// Resolve finds a field by exact ID, unique ID prefix, or case-insensitive label.
func (w *Workspace) Resolve(ref string) (Field, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := w.indexLocked(ref); i >= 0 {
		return w.state.Fields[i], nil
	}

	var matches []Field
	for _, f := range w.state.Fields {
		if strings.EqualFold(f.Label, ref) {
			return f, nil
		}
		if ref != "" && strings.HasPrefix(f.ID, ref) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, ref)
	default:
		return Field{}, fmt.Errorf("field reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// AddField appends an empty field labelled "Field N".
func (w *Workspace) AddField() (Field, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := Field{
		ID:    uuid.NewString(),
		Label: fmt.Sprintf("Field %d", len(w.state.Fields)+1),
	}
	w.state.Fields = append(w.state.Fields, f)
	w.notifyLocked(SeveritySuccess, f.ID, msgFieldAdded)
	w.audit.LogFieldChange(observability.AuditEventFieldAdd, f.ID, f.Label)
	return f, w.saveLocked()
}

// RemoveField deletes a field. A run still in flight for it finishes but its
// result is dropped.
func (w *Workspace) RemoveField(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	label := w.state.Fields[i].Label
	w.state.Fields = append(w.state.Fields[:i:i], w.state.Fields[i+1:]...)
	delete(w.status, id)
	w.notifyLocked(SeverityInfo, id, msgFieldRemoved)
	w.audit.LogFieldChange(observability.AuditEventFieldRemove, id, label)
	return w.saveLocked()
}

// UpdateField applies fn to the field. The ID cannot be changed.
func (w *Workspace) UpdateField(id string, fn func(*Field)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	f := w.state.Fields[i]
	fn(&f)
	f.ID = id
	w.state.Fields[i] = f
	return w.saveLocked()
}

func (w *Workspace) Model() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Model
}

// SetModel selects the model used by subsequent runs. Empty resets to DefaultModel.
func (w *Workspace) SetModel(model string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if model == "" {
		model = DefaultModel
	}
	w.state.Model = model
	return w.saveLocked()
}

func (w *Workspace) APIBase() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.APIBase
}

func (w *Workspace) SetAPIBase(base string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.APIBase = strings.TrimSuffix(strings.TrimSpace(base), "/")
	return w.saveLocked()
}

// Status reports the field's latest run. Fields never run are idle.
func (w *Workspace) Status(id string) Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.status[id]; ok {
		return s
	}
	return Status{State: RunIdle}
}

func (w *Workspace) RunningCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.status {
		if s.State == RunPending {
			n++
		}
	}
	return n
}

// Notices returns the user-facing messages in the order they were raised.
func (w *Workspace) Notices() []Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Notice(nil), w.notices...)
}

// Run validates the field and dispatches one request for it in the
// background. Validation failures are returned directly and leave the field
// untouched. Use Wait or Status to observe the outcome.
func (w *Workspace) Run(ctx context.Context, id string) error {
	w.mu.Lock()

	i := w.indexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	if w.status[id].State == RunPending {
		w.mu.Unlock()
		return ErrRunInFlight
	}

	f := w.state.Fields[i]
	if err := client.Validate(f.Instruction, f.Input); err != nil {
		w.notifyLocked(SeverityWarning, id, err.Error())
		w.mu.Unlock()
		w.audit.LogRunRejected(id, err.Error())
		return err
	}

	req := api.CompletionRequest{Instruction: f.Instruction, Input: f.Input, Model: w.state.Model}
	c := w.newClient(w.state.APIBase)
	w.status[id] = Status{State: RunPending}
	w.wg.Add(1)
	w.mu.Unlock()

	go w.execute(context.WithoutCancel(ctx), id, req, c)
	return nil
}

// RunAll dispatches every field. The returned map holds the fields that were
// not dispatched and why.
func (w *Workspace) RunAll(ctx context.Context) map[string]error {
	rejected := make(map[string]error)
	for _, f := range w.Fields() {
		if err := w.Run(ctx, f.ID); err != nil {
			rejected[f.ID] = err
		}
	}
	return rejected
}

// Wait blocks until every dispatched run has finished.
func (w *Workspace) Wait() {
	w.wg.Wait()
}

func (w *Workspace) execute(ctx context.Context, id string, req api.CompletionRequest, c Completer) {
	defer w.wg.Done()

	ctx, span := observability.StartRunSpan(ctx, id, req.Model)
	defer span.End()

	w.audit.LogRunStart(id, req.Model, len(req.Instruction), len(req.Input))
	start := time.Now()
	answer, err := c.Complete(ctx, req)
	elapsed := time.Since(start)

	log := w.log.WithFields(logrus.Fields{
		"field":    id,
		"model":    req.Model,
		"duration": elapsed.Round(time.Millisecond),
	})

	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		log.Debug("field removed before its run finished")
		return
	}

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = msgRequestFailed
		}
		w.status[id] = Status{State: RunError, Err: msg, Duration: elapsed}
		observability.RecordError(span, err)
		w.audit.LogRunError(id, req.Model, elapsed, err)
		log.WithError(err).Warn("field run failed")
		return
	}

	w.state.Fields[i].Output = answer
	w.status[id] = Status{State: RunSuccess, Duration: elapsed}
	w.audit.LogRunSuccess(id, req.Model, elapsed, len(answer))
	log.Info("field run finished")
	if err := w.saveLocked(); err != nil {
		log.WithError(err).Warn("persisting workspace state")
	}
}
