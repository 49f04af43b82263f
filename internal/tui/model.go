package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	defaultWidth  = 110
	defaultHeight = 30
	detailWidth   = 42
	// Lines taken by title, table header, status bar and help.
	chromeHeight = 8
)

var defaultPageSizes = []int{10, 20, 50, 100}

var errMissingConsole = errors.New("tui: console is required")

// Config wires a Model.
type Config struct {
	Console   *leads.Console
	Keys      *KeyMap
	PageSizes []int
	// Copy writes to the system clipboard; clipboard.WriteAll when nil.
	Copy    func(string) error
	Timeout time.Duration
	Logger  *zap.Logger
}

type reloadStartMsg struct{}

type reloadedMsg struct {
	ticket  leads.ReloadTicket
	records []leads.Lead
	err     error
}

type patchedMsg struct {
	ticket  leads.SubmitTicket
	updated leads.Lead
	err     error
}

type noticeFadeMsg struct{ seq uint64 }

type toastFadeMsg struct{ seq int }

type transientFadeMsg struct{}

type savedFadeMsg struct{}

// Model is the bubbletea model of the lead console. It owns the console and
// is its only caller, so console access needs no locking.
type Model struct {
	console   *leads.Console
	transport leads.Transport
	keys      KeyMap
	styles    styles
	pageSizes []int
	copy      func(string) error
	timeout   time.Duration
	logger    *zap.Logger
	tick      func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	state     leads.State
	table     table.Model
	search    textinput.Model
	searching bool
	inputs    []textinput.Model
	focus     int
	editID    string

	toast    string
	toastSeq int

	noticeSeq        uint64
	transientPending bool

	width  int
	height int
}

// NewModel builds a model over cfg.Console. The first reload starts in Init.
func NewModel(cfg Config) (Model, error) {
	if cfg.Console == nil {
		return Model{}, errMissingConsole
	}
	keys := DefaultKeyMap
	if cfg.Keys != nil {
		keys = *cfg.Keys
	}
	pageSizes := cfg.PageSizes
	if len(pageSizes) == 0 {
		pageSizes = defaultPageSizes
	}
	copyFn := cfg.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "name, phone, address, id"
	search.CharLimit = 128
	search.Cursor.SetMode(cursor.CursorStatic)

	inputs := make([]textinput.Model, len(leads.EditableFields))
	for index, field := range leads.EditableFields {
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = field.Label()
		input.CharLimit = 256
		input.Width = 36
		input.Cursor.SetMode(cursor.CursorStatic)
		inputs[index] = input
	}

	leadTable := table.New(
		table.WithColumns(columnsFor(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	leadTable.SetStyles(tableStyles())

	model := Model{
		console:   cfg.Console,
		transport: cfg.Console.Transport(),
		keys:      keys,
		styles:    newStyles(),
		pageSizes: pageSizes,
		copy:      copyFn,
		timeout:   timeout,
		logger:    logger,
		tick:      tea.Tick,
		table:     leadTable,
		search:    search,
		inputs:    inputs,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	model.state = cfg.Console.State()
	model.syncTable()
	return model, nil
}

func (model Model) Init() tea.Cmd {
	return func() tea.Msg { return reloadStartMsg{} }
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	cmd := model.update(message)
	return model, cmd
}

func (model *Model) update(message tea.Msg) tea.Cmd {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.table.SetColumns(columnsFor(model.listWidth()))
		model.table.SetHeight(max(3, model.height-chromeHeight))
		return nil

	case reloadStartMsg:
		return model.startReload()

	case reloadedMsg:
		model.console.FinishReload(message.ticket, message.records, message.err)
		return model.refresh()

	case patchedMsg:
		return model.finishSubmit(message)

	case noticeFadeMsg:
		model.console.DismissNotice(message.seq)
		return model.refresh()

	case transientFadeMsg:
		model.transientPending = false
		model.console.ClearEditMessage()
		return model.refresh()

	case savedFadeMsg:
		model.console.DismissSaved()
		return model.refresh()

	case toastFadeMsg:
		if message.seq == model.toastSeq {
			model.toast = ""
		}
		return nil

	case tea.KeyMsg:
		switch {
		case model.state.Edit.Open || model.state.Edit.Closing:
			return model.handleEditKeys(message)
		case model.searching:
			return model.handleSearchKeys(message)
		default:
			return model.handleListKeys(message)
		}
	}
	return nil
}

func (model *Model) handleListKeys(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Quit):
		return tea.Quit
	case key.Matches(message, model.keys.Search):
		model.searching = true
		model.search.SetValue(model.state.Params.Query)
		model.search.CursorEnd()
		return model.search.Focus()
	case key.Matches(message, model.keys.Sort):
		model.console.SetSort(model.state.Params.Sort.Next())
		return model.refresh()
	case key.Matches(message, model.keys.PageSize):
		if err := model.console.SetPageSize(model.nextPageSize()); err != nil {
			return model.showToast(err.Error())
		}
		return model.refresh()
	case key.Matches(message, model.keys.PrevPage):
		model.console.PrevPage()
		return model.refresh()
	case key.Matches(message, model.keys.NextPage):
		model.console.NextPage()
		return model.refresh()
	case key.Matches(message, model.keys.Refresh):
		return model.startReload()
	case key.Matches(message, model.keys.CopyID):
		selected := model.selectHighlighted()
		return tea.Batch(selected, model.copySelectedID())
	case key.Matches(message, model.keys.Edit):
		selected := model.selectHighlighted()
		if !model.console.OpenEdit(model.state.SelectedID) {
			return tea.Batch(selected, model.showToast("Select a lead first"))
		}
		cmd := model.refresh()
		model.editID = model.state.Edit.ID
		model.syncInputs()
		return tea.Batch(selected, cmd, model.focusInput(0))
	}

	previous := model.table.Cursor()
	var cmd tea.Cmd
	switch {
	case key.Matches(message, model.keys.Up):
		model.table.MoveUp(1)
	case key.Matches(message, model.keys.Down):
		model.table.MoveDown(1)
	default:
		model.table, cmd = model.table.Update(message)
	}
	if model.table.Cursor() != previous {
		return tea.Batch(cmd, model.selectCursor())
	}
	return cmd
}

// selectCursor selects the lead under the table cursor.
func (model *Model) selectCursor() tea.Cmd {
	id, ok := model.cursorID()
	if !ok {
		return nil
	}
	model.console.Select(id)
	return model.refresh()
}

// selectHighlighted selects the highlighted row when nothing is selected yet.
func (model *Model) selectHighlighted() tea.Cmd {
	if model.state.SelectedID != "" {
		return nil
	}
	return model.selectCursor()
}

func (model *Model) handleSearchKeys(message tea.KeyMsg) tea.Cmd {
	switch {
	case message.Type == tea.KeyCtrlC:
		return tea.Quit
	case key.Matches(message, model.keys.SearchAccept):
		model.searching = false
		model.search.Blur()
		return nil
	case key.Matches(message, model.keys.SearchClear):
		model.searching = false
		model.search.Blur()
		model.search.SetValue("")
		model.console.SetQuery("")
		return model.refresh()
	}

	var cmd tea.Cmd
	model.search, cmd = model.search.Update(message)
	if model.search.Value() != model.state.Params.Query {
		model.console.SetQuery(model.search.Value())
		return tea.Batch(cmd, model.refresh())
	}
	return cmd
}

func (model *Model) handleEditKeys(message tea.KeyMsg) tea.Cmd {
	if message.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	if model.state.Edit.Closing {
		if key.Matches(message, model.keys.Cancel) {
			model.console.DismissSaved()
			return model.refresh()
		}
		return nil
	}

	switch {
	case key.Matches(message, model.keys.Cancel):
		model.console.CloseEdit()
		model.blurInputs()
		return model.refresh()
	case key.Matches(message, model.keys.NextField):
		return model.focusInput((model.focus + 1) % len(model.inputs))
	case key.Matches(message, model.keys.PrevField):
		return model.focusInput((model.focus + len(model.inputs) - 1) % len(model.inputs))
	case key.Matches(message, model.keys.Revert):
		if err := model.console.ResetEdit(); err != nil {
			return nil
		}
		cmd := model.refresh()
		model.syncInputs()
		return cmd
	case key.Matches(message, model.keys.Save):
		return model.beginSubmit()
	}

	if model.state.Edit.Busy {
		return nil
	}

	var cmd tea.Cmd
	model.inputs[model.focus], cmd = model.inputs[model.focus].Update(message)
	field := leads.EditableFields[model.focus]
	value := model.inputs[model.focus].Value()
	if value != model.state.Edit.Value(field) {
		if err := model.console.UpdateField(field, value); err != nil {
			model.logger.Debug("edit update ignored", zap.Error(err))
			model.syncInputs()
			return cmd
		}
		return tea.Batch(cmd, model.refresh())
	}
	return cmd
}

// startReload issues a reload ticket and fetches in a command. Responses for
// superseded tickets are discarded by the console.
func (model *Model) startReload() tea.Cmd {
	ticket := model.console.BeginReload()
	fetch := model.fetchCmd(ticket)
	return tea.Batch(model.refresh(), fetch)
}

func (model *Model) fetchCmd(ticket leads.ReloadTicket) tea.Cmd {
	transport := model.transport
	timeout := model.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := transport.FetchLeads(ctx)
		return reloadedMsg{ticket: ticket, records: records, err: err}
	}
}

func (model *Model) beginSubmit() tea.Cmd {
	ticket, err := model.console.BeginSubmit(model.editID)
	if err != nil {
		if !errors.Is(err, leads.ErrNothingToSave) && !errors.Is(err, leads.ErrSubmitInFlight) {
			model.logger.Warn("submit rejected", zap.String("lead_id", model.editID), zap.Error(err))
		}
		return model.refresh()
	}

	transport := model.transport
	timeout := model.timeout
	patch := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		updated, err := transport.PatchLead(ctx, ticket.ID(), ticket.Patch())
		return patchedMsg{ticket: ticket, updated: updated, err: err}
	}
	return tea.Batch(model.refresh(), patch)
}

func (model *Model) finishSubmit(message patchedMsg) tea.Cmd {
	outcome := model.console.FinishSubmit(message.ticket, message.updated, message.err)
	if !outcome.Saved {
		return model.refresh()
	}
	model.blurInputs()
	closeAfter := model.tick(outcome.CloseAfter, func(time.Time) tea.Msg {
		return savedFadeMsg{}
	})
	return tea.Batch(closeAfter, model.startReload())
}

// refresh re-reads the console state into the model and schedules the
// timers that clear notices and transient messages.
func (model *Model) refresh() tea.Cmd {
	model.state = model.console.State()
	model.syncTable()

	var cmds []tea.Cmd
	notice := model.state.Notice
	if notice.Text != "" && notice.Seq != model.noticeSeq {
		model.noticeSeq = notice.Seq
		cmds = append(cmds, model.tick(leads.NoticeTTL, func(time.Time) tea.Msg {
			return noticeFadeMsg{seq: notice.Seq}
		}))
	}
	if model.state.Edit.Message.Transient && !model.transientPending {
		model.transientPending = true
		cmds = append(cmds, model.tick(leads.TransientMessageTTL, func(time.Time) tea.Msg {
			return transientFadeMsg{}
		}))
	}
	return tea.Batch(cmds...)
}

func (model *Model) syncTable() {
	rows := make([]table.Row, 0, len(model.state.Rows))
	cursor := 0
	for index, row := range model.state.Rows {
		rows = append(rows, table.Row{row.Label, row.Phone, row.Address, row.Created, row.ShortID})
		if row.Lead.ID == model.state.SelectedID {
			cursor = index
		}
	}
	model.table.SetRows(rows)
	model.table.SetCursor(cursor)
}

func (model *Model) syncInputs() {
	for index, field := range leads.EditableFields {
		model.inputs[index].SetValue(model.state.Edit.Value(field))
		model.inputs[index].CursorEnd()
	}
}

func (model *Model) focusInput(index int) tea.Cmd {
	model.blurInputs()
	model.focus = index
	return model.inputs[index].Focus()
}

func (model *Model) blurInputs() {
	for index := range model.inputs {
		model.inputs[index].Blur()
	}
}

func (model *Model) copySelectedID() tea.Cmd {
	if !model.state.Detail.CanCopyID {
		return model.showToast("Select a lead first")
	}
	if err := model.copy(model.state.Detail.ID); err != nil {
		model.logger.Warn("clipboard unavailable", zap.Error(err))
		return model.showToast("Clipboard unavailable")
	}
	return model.showToast("ID copied")
}

func (model *Model) showToast(text string) tea.Cmd {
	model.toastSeq++
	model.toast = text
	seq := model.toastSeq
	return model.tick(leads.NoticeTTL, func(time.Time) tea.Msg {
		return toastFadeMsg{seq: seq}
	})
}

func (model Model) cursorID() (string, bool) {
	cursor := model.table.Cursor()
	if cursor < 0 || cursor >= len(model.state.Rows) {
		return "", false
	}
	return model.state.Rows[cursor].Lead.ID, true
}

func (model Model) nextPageSize() int {
	current := model.state.Params.PageSize
	for index, size := range model.pageSizes {
		if size == current {
			return model.pageSizes[(index+1)%len(model.pageSizes)]
		}
	}
	return model.pageSizes[0]
}

func (model Model) listWidth() int {
	return max(40, model.width-detailWidth-4)
}

func columnsFor(width int) []table.Column {
	fixed := 14 + 16 + 8
	flexible := max(20, width-fixed-8)
	return []table.Column{
		{Title: "Name", Width: flexible / 2},
		{Title: "Phone", Width: 14},
		{Title: "Address", Width: flexible - flexible/2},
		{Title: "Created", Width: 16},
		{Title: "ID", Width: 8},
	}
}

func (model Model) View() string {
	title := model.styles.title.Render("Leads")
	if model.searching || model.state.Params.Query != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Left, title, model.search.View())
	}

	list := model.styles.panel.Width(model.listWidth()).Render(model.listView())
	detail := model.styles.panel.Width(detailWidth).Render(model.detailView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, detail)

	if model.state.Edit.Open || model.state.Edit.Closing {
		body = lipgloss.Place(model.width, lipgloss.Height(body), lipgloss.Center, lipgloss.Center, model.editView())
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, body, model.statusView(), model.helpView())
}

func (model Model) listView() string {
	if len(model.state.Rows) > 0 {
		return model.table.View()
	}
	switch {
	case model.state.Loading:
		return model.styles.hint.Render("Loading leads…")
	case model.state.Params.Query != "":
		return model.styles.hint.Render(fmt.Sprintf("No leads match %q", model.state.Params.Query))
	default:
		return model.styles.hint.Render("No leads yet")
	}
}

func (model Model) detailView() string {
	detail := model.state.Detail
	if !detail.Selected {
		return model.styles.hint.Render("No lead selected")
	}
	lines := []string{
		model.detailLine("ID", detail.ID),
		model.detailLine("Created", detail.Created),
		model.detailLine(leads.FieldName.Label(), detail.Name),
		model.detailLine(leads.FieldLastName.Label(), detail.LastName),
		model.detailLine(leads.FieldPhone.Label(), detail.Phone),
		model.detailLine(leads.FieldAddress.Label(), detail.Address),
	}
	return strings.Join(lines, "\n")
}

func (model Model) detailLine(label, value string) string {
	return model.styles.label.Render(label) + model.styles.value.Render(value)
}

func (model Model) editView() string {
	edit := model.state.Edit
	lines := []string{model.styles.modalTitle.Render("Edit lead " + edit.ID)}
	for index, field := range leads.EditableFields {
		lines = append(lines, model.styles.label.Render(field.Label())+model.inputs[index].View())
	}
	if edit.Message.Text != "" {
		lines = append(lines, "", model.toneStyle(edit.Message.Tone).Render(edit.Message.Text))
	}
	return model.styles.modal.Render(strings.Join(lines, "\n"))
}

func (model Model) statusView() string {
	state := model.state
	dot := "●"
	switch state.Status {
	case leads.StatusOK:
		dot = model.styles.ok.Render(dot)
	case leads.StatusError:
		dot = model.styles.err.Render(dot)
	case leads.StatusLoading:
		dot = model.styles.info.Render(dot)
	default:
		dot = model.styles.hint.Render(dot)
	}

	lastSync := leads.Placeholder
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync.Format("15:04:05")
	}
	segments := []string{
		dot,
		"Last sync " + lastSync,
		fmt.Sprintf("%d leads", state.View.TotalCount),
		fmt.Sprintf("Page %d/%d", state.View.Page, state.View.TotalPages),
		"Sort: " + state.Params.Sort.Label(),
		fmt.Sprintf("Size: %d", state.Params.PageSize),
	}
	if state.Notice.Text != "" {
		segments = append(segments, model.toneStyle(state.Notice.Tone).Render(state.Notice.Text))
	}
	if model.toast != "" {
		segments = append(segments, model.styles.info.Render(model.toast))
	}

	rendered := make([]string, 0, len(segments))
	for _, segment := range segments {
		rendered = append(rendered, model.styles.statusSeg.Render(segment))
	}
	return model.styles.statusBar.Render(lipgloss.JoinHorizontal(lipgloss.Left, rendered...))
}

func (model Model) helpView() string {
	bindings := model.keys.listHelp()
	if model.state.Edit.Open {
		bindings = model.keys.editHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return model.styles.hint.Render(strings.Join(parts, " · "))
}

func (model Model) toneStyle(tone leads.Tone) lipgloss.Style {
	switch tone {
	case leads.ToneOK:
		return model.styles.ok
	case leads.ToneError:
		return model.styles.err
	case leads.ToneInfo:
		return model.styles.info
	default:
		return model.styles.value
	}
}
