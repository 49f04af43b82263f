package leads

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultConfirmDelay keeps a saved edit form on screen before it closes.
	DefaultConfirmDelay = 450 * time.Millisecond
	// NoticeTTL is how long renderers show a notice.
	NoticeTTL = 2200 * time.Millisecond
	// TransientMessageTTL is how long renderers show a transient form message.
	TransientMessageTTL = 1200 * time.Millisecond
)

const (
	noticeLoaded      = "Leads loaded"
	noticeLoadFailed  = "Error loading leads"
	noticeSaved       = "Saved"
	noticeErrorPrefix = "Error: "
)

const (
	opReload = "leads.console.reload"
	opSubmit = "leads.console.submit"
)

var (
	// ErrNoEditSession indicates that no edit session is open for the lead.
	ErrNoEditSession = errors.New("leads: no edit session open")
	// ErrSubmitInFlight indicates that the session already has a submit pending.
	ErrSubmitInFlight = errors.New("leads: submit already in flight")
	// ErrNothingToSave indicates an empty patch; no request is issued.
	ErrNothingToSave = errors.New("leads: nothing to save")

	errMissingTransport = errors.New("leads: transport is required")
)

// Transport is the remote leads service.
type Transport interface {
	FetchLeads(ctx context.Context) ([]Lead, error)
	PatchLead(ctx context.Context, id string, patch Patch) (Lead, error)
}

// UserMessenger is implemented by errors that carry text fit for display.
type UserMessenger interface {
	UserMessage() string
}

// EventRecorder receives lifecycle outcomes, typically for metrics.
type EventRecorder interface {
	ReloadFinished(outcome string)
	SubmitFinished(outcome string)
}

// Reload and submit outcomes passed to EventRecorder.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
	OutcomeSaved   = "saved"
	OutcomeEmpty   = "nothing_to_save"
)

// Status is the sync indicator.
type Status string

const (
	StatusIdle    Status = ""
	StatusLoading Status = "loading"
	StatusOK      Status = "ok"
	StatusError   Status = "err"
)

// Notice is a short-lived notification. Seq lets renderers dismiss only the
// notice they scheduled a timer for.
type Notice struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// State is the full snapshot handed to renderers after every change.
type State struct {
	Params     Params    `json:"params"`
	View       View      `json:"view"`
	Rows       []Row     `json:"rows"`
	SelectedID string    `json:"selected_id"`
	Detail     Detail    `json:"detail"`
	Edit       EditView  `json:"edit"`
	Status     Status    `json:"status"`
	Loading    bool      `json:"loading"`
	LastSync   time.Time `json:"last_sync"`
	Notice     Notice    `json:"notice"`
}

// Config wires a Console.
type Config struct {
	Transport    Transport
	Pipeline     Pipeline
	Projector    Projector
	PageSize     int
	Sort         SortKey
	ConfirmDelay time.Duration
	Clock        func() time.Time
	Logger       *zap.Logger
	Recorder     EventRecorder
}

// Console owns the record store, selection and edit session of one client.
// It is not safe for concurrent use; callers serialize access the way a
// single event loop would.
type Console struct {
	transport    Transport
	store        *Store
	projector    Projector
	confirmDelay time.Duration
	clock        func() time.Time
	logger       *zap.Logger
	recorder     EventRecorder

	selectedID string
	edit       *EditSession
	closing    *EditView

	status   Status
	lastSync time.Time
	notice   Notice

	reloadIssued uint64

	observers   map[int]func(State)
	nextObserve int
}

// NewConsole validates cfg and returns an empty console.
func NewConsole(cfg Config) (*Console, error) {
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	confirmDelay := cfg.ConfirmDelay
	if confirmDelay <= 0 {
		confirmDelay = DefaultConfirmDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		transport:    cfg.Transport,
		store:        NewStore(cfg.Pipeline, cfg.PageSize, cfg.Sort),
		projector:    cfg.Projector,
		confirmDelay: confirmDelay,
		clock:        clock,
		logger:       logger,
		recorder:     cfg.Recorder,
		observers:    make(map[int]func(State)),
	}, nil
}

// Transport exposes the configured transport for callers driving the
// Begin/Finish forms from their own event loop.
func (c *Console) Transport() Transport {
	return c.transport
}

// OnChange registers fn to receive a State after every change and returns a
// function that removes it.
func (c *Console) OnChange(fn func(State)) func() {
	id := c.nextObserve
	c.nextObserve++
	c.observers[id] = fn
	return func() {
		delete(c.observers, id)
	}
}

// State builds the current snapshot.
func (c *Console) State() State {
	view := c.store.View()
	editView := c.edit.view()
	if c.edit == nil && c.closing != nil {
		editView = *c.closing
	}
	return State{
		Params:     c.store.Params(),
		View:       view,
		Rows:       c.projector.Rows(view.Items),
		SelectedID: c.selectedID,
		Detail:     c.detail(),
		Edit:       editView,
		Status:     c.status,
		Loading:    c.status == StatusLoading,
		LastSync:   c.lastSync,
		Notice:     c.notice,
	}
}

func (c *Console) detail() Detail {
	lead, ok := c.store.Lookup(c.selectedID)
	if !ok {
		return EmptyDetail()
	}
	return c.projector.Detail(lead)
}

func (c *Console) changed() {
	if len(c.observers) == 0 {
		return
	}
	state := c.State()
	for _, fn := range c.observers {
		fn(state)
	}
}

// SetQuery filters the list and returns to page 1.
func (c *Console) SetQuery(query string) {
	c.store.SetQuery(query)
	c.changed()
}

// SetSort changes the ordering and returns to page 1.
func (c *Console) SetSort(key SortKey) {
	c.store.SetSort(key)
	c.changed()
}

// SetPageSize changes the page size and returns to page 1.
func (c *Console) SetPageSize(size int) error {
	if err := c.store.SetPageSize(size); err != nil {
		return err
	}
	c.changed()
	return nil
}

// SetPage navigates to a page, clamped to the filtered page count.
func (c *Console) SetPage(page int) int {
	clamped := c.store.SetPage(page)
	c.changed()
	return clamped
}

// NextPage moves forward one page.
func (c *Console) NextPage() int {
	page := c.store.NextPage()
	c.changed()
	return page
}

// PrevPage moves back one page.
func (c *Console) PrevPage() int {
	page := c.store.PrevPage()
	c.changed()
	return page
}

// View returns the visible page.
func (c *Console) View() View {
	return c.store.View()
}

// Select highlights id and returns its detail. The selection persists even
// when the lead is filtered out or missing; missing ids project as "no selection".
func (c *Console) Select(id string) Detail {
	c.selectedID = id
	c.changed()
	return c.detail()
}

// ClearSelection removes the highlight.
func (c *Console) ClearSelection() {
	c.selectedID = ""
	c.changed()
}

// SelectedID returns the highlighted id or "".
func (c *Console) SelectedID() string {
	return c.selectedID
}

// OpenEdit starts an edit session for id, discarding any previous one. It
// is a no-op returning false when id is not in the record set.
func (c *Console) OpenEdit(id string) bool {
	lead, ok := c.store.Lookup(id)
	if !ok {
		return false
	}
	c.edit = newEditSession(lead)
	c.closing = nil
	c.changed()
	return true
}

// EditSession returns the open session or nil.
func (c *Console) EditSession() *EditSession {
	return c.edit
}

// UpdateField sets one working value of the open session. The form is
// frozen while a submit is in flight.
func (c *Console) UpdateField(field Field, value string) error {
	if c.edit.Busy() {
		return ErrSubmitInFlight
	}
	if err := c.edit.UpdateField(field, value); err != nil {
		return err
	}
	c.changed()
	return nil
}

// BuildPatch computes the patch of the open session; false without a session.
func (c *Console) BuildPatch() (Patch, bool) {
	return c.edit.BuildPatch()
}

// ResetEdit reverts the open session to its original values.
func (c *Console) ResetEdit() error {
	switch {
	case c.edit == nil:
		return ErrNoEditSession
	case c.edit.Busy():
		return ErrSubmitInFlight
	}
	c.edit.Reset()
	c.changed()
	return nil
}

// ClearEditMessage clears a transient form message and reports whether it did.
func (c *Console) ClearEditMessage() bool {
	if c.edit == nil || !c.edit.message.Transient {
		return false
	}
	c.edit.message = Message{}
	c.changed()
	return true
}

// CloseEdit discards the open session and any saved confirmation.
func (c *Console) CloseEdit() {
	if c.edit == nil && c.closing == nil {
		return
	}
	c.edit = nil
	c.closing = nil
	c.changed()
}

// DismissSaved removes the confirmation left by a successful submit without
// touching a session opened since.
func (c *Console) DismissSaved() {
	if c.closing == nil {
		return
	}
	c.closing = nil
	c.changed()
}

// DismissNotice clears the notice if it is still the one numbered seq.
func (c *Console) DismissNotice(seq uint64) {
	if c.notice.Seq != seq || c.notice.Text == "" {
		return
	}
	c.notice = Notice{Seq: seq}
	c.changed()
}

func (c *Console) setNotice(text string, tone Tone) {
	c.notice = Notice{Seq: c.notice.Seq + 1, Text: text, Tone: tone}
}

// ReloadTicket identifies one issued reload.
type ReloadTicket struct {
	seq uint64
}

// BeginReload marks a reload as in flight. Only the most recently issued
// ticket is applied by FinishReload; older responses are discarded.
func (c *Console) BeginReload() ReloadTicket {
	c.reloadIssued++
	c.status = StatusLoading
	c.changed()
	return ReloadTicket{seq: c.reloadIssued}
}

// FinishReload applies a fetch result. It reports false when the ticket was
// superseded by a newer reload, in which case state is left untouched.
func (c *Console) FinishReload(ticket ReloadTicket, records []Lead, err error) bool {
	if ticket.seq != c.reloadIssued {
		c.logger.Debug("discarding stale reload",
			zap.Uint64("ticket", ticket.seq),
			zap.Uint64("latest", c.reloadIssued))
		c.record(c.recordReload, OutcomeStale)
		return false
	}

	if err != nil {
		c.status = StatusError
		c.setNotice(noticeLoadFailed, ToneError)
		c.logError(opReload, "fetch_failed", err)
		c.record(c.recordReload, OutcomeFailed)
	} else {
		c.store.SetRecords(records)
		c.status = StatusOK
		c.lastSync = c.clock()
		c.setNotice(noticeLoaded, ToneOK)
		c.logger.Debug("leads reloaded", zap.Int("count", len(records)))
		c.record(c.recordReload, OutcomeApplied)
	}
	c.changed()
	return true
}

// Reload fetches the full record set and replaces the snapshot. A failure
// keeps the previous snapshot and is returned after being surfaced in State.
func (c *Console) Reload(ctx context.Context) error {
	ticket := c.BeginReload()
	records, err := c.transport.FetchLeads(ctx)
	c.FinishReload(ticket, records, err)
	return err
}

// SubmitTicket carries a computed patch to the transport.
type SubmitTicket struct {
	session *EditSession
	id      string
	patch   Patch
}

// ID returns the lead id being patched.
func (t SubmitTicket) ID() string {
	return t.id
}

// Patch returns a copy of the patch to send.
func (t SubmitTicket) Patch() Patch {
	return t.patch.Clone()
}

// SubmitOutcome describes a finished submit. When Saved is true the caller
// should reload, and may keep the confirmation visible for CloseAfter before
// calling DismissSaved.
type SubmitOutcome struct {
	Saved      bool
	CloseAfter time.Duration
	Message    string
	Err        error
}

// BeginSubmit validates the session for id and computes its patch. An empty
// patch sets the "nothing to save" message and returns ErrNothingToSave.
func (c *Console) BeginSubmit(id string) (SubmitTicket, error) {
	session := c.edit
	if session == nil || id == "" || session.ID() != id {
		return SubmitTicket{}, ErrNoEditSession
	}
	if session.busy {
		return SubmitTicket{}, ErrSubmitInFlight
	}

	patch, _ := session.BuildPatch()
	if len(patch) == 0 {
		session.setMessage(msgNothingToSave, ToneError)
		c.record(c.recordSubmit, OutcomeEmpty)
		c.changed()
		return SubmitTicket{}, ErrNothingToSave
	}

	session.busy = true
	session.setMessage(msgSaving, ToneInfo)
	c.changed()
	return SubmitTicket{session: session, id: id, patch: patch}, nil
}

// FinishSubmit applies the transport result. On success the session is
// closed, the returned lead is merged into the store and id stays selected.
// On failure the session stays open with the transport's message.
func (c *Console) FinishSubmit(ticket SubmitTicket, updated Lead, err error) SubmitOutcome {
	current := c.edit == ticket.session && ticket.session != nil

	if err != nil {
		message := userMessage(err)
		if current {
			ticket.session.busy = false
			ticket.session.setMessage(message, ToneError)
		}
		c.setNotice(noticeErrorPrefix+message, ToneError)
		c.logError(opSubmit, "patch_failed", err, zap.String("lead_id", ticket.id))
		c.record(c.recordSubmit, OutcomeFailed)
		c.changed()
		return SubmitOutcome{Message: message, Err: err}
	}

	if updated.ID == ticket.id {
		c.store.Upsert(updated)
	}
	if current {
		ticket.session.busy = false
		ticket.session.setMessage(msgSaved, ToneOK)
		saved := ticket.session.view()
		saved.Open = false
		saved.Closing = true
		saved.Patch = nil
		c.closing = &saved
		c.edit = nil
	}
	c.selectedID = ticket.id
	c.setNotice(noticeSaved, ToneOK)
	c.logger.Info("lead updated",
		zap.String("lead_id", ticket.id),
		zap.Int("fields", len(ticket.patch)))
	c.record(c.recordSubmit, OutcomeSaved)
	c.changed()
	return SubmitOutcome{Saved: true, CloseAfter: c.confirmDelay, Message: msgSaved}
}

// SubmitEdit sends the open session's patch for id. An empty patch makes no
// network call. On success the console reloads and re-selects id.
func (c *Console) SubmitEdit(ctx context.Context, id string) (SubmitOutcome, error) {
	ticket, err := c.BeginSubmit(id)
	if err != nil {
		return SubmitOutcome{Message: c.edit.Message().Text, Err: err}, err
	}

	updated, err := c.transport.PatchLead(ctx, id, ticket.Patch())
	outcome := c.FinishSubmit(ticket, updated, err)
	if err != nil {
		return outcome, err
	}

	// A failed reload is already surfaced in State; the save itself succeeded.
	_ = c.Reload(ctx)
	c.Select(id)
	return outcome, nil
}

func (c *Console) recordReload(outcome string) {
	c.recorder.ReloadFinished(outcome)
}

func (c *Console) recordSubmit(outcome string) {
	c.recorder.SubmitFinished(outcome)
}

func (c *Console) record(fn func(string), outcome string) {
	if c.recorder == nil {
		return
	}
	fn(outcome)
}

func (c *Console) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	c.logger.Warn("console operation failed", attrs...)
}

func userMessage(err error) string {
	var messenger UserMessenger
	if errors.As(err, &messenger) {
		if text := messenger.UserMessage(); text != "" {
			return text
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return msgSaveFailed
}
