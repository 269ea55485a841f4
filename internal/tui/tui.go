package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/cities/internal/form"
	"github.com/Makepad-fr/cities/internal/model"
	"github.com/Makepad-fr/cities/internal/reconcile"
	"github.com/Makepad-fr/cities/internal/ui"
)

// resultMsg carries a finished remote call back onto the event loop.
type resultMsg reconcile.Result

// cityItem adapts a City to bubbles/list.Item
type cityItem struct {
	city    model.City
	pending bool
}

func (i cityItem) Title() string       { return i.city.Name }
func (i cityItem) Description() string { return fmt.Sprintf("#%d", i.city.CityID) }
func (i cityItem) FilterValue() string { return i.city.Name }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(cityItem)
	if !ok {
		return
	}
	t := ui.Current()

	name := ui.Truncate(it.city.Name, 60)
	line := fmt.Sprintf("%s %s %s", t.Muted.Render(t.SymBullet), name, t.Muted.Render(it.Description()))
	if it.pending {
		line += " " + t.Pending.Render(t.SymPending)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(t.Cursor)
	}
	fmt.Fprintln(w, prefix+line)
}

type keyMap struct {
	Add, Edit, Delete, Reload, Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Delete, k.Reload}
}

// Model is the Bubble Tea model for the interactive city list. All store and
// form mutation happens in Update; remote calls run as commands.
type Model struct {
	ctx     context.Context
	engine  *reconcile.Engine
	list    list.Model
	ti      textinput.Model // shared input for create & edit
	spinner spinner.Model
	keys    keyMap

	formOpen    bool
	formSession uint64

	status    string
	statusErr bool
	width     int
	height    int
}

// New builds the model. The initial list fetch is issued by Init.
func New(ctx context.Context, engine *reconcile.Engine) Model {
	keys := newKeyMap()
	t := ui.Current()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = "Cities"
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Muted
	l.Styles.PaginationStyle = t.Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("city", "cities")
	l.DisableQuitKeybindings()
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "City name..."
	ti.CharLimit = 200

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(t.Pending))

	return Model{
		ctx:     ctx,
		engine:  engine,
		list:    l,
		ti:      ti,
		spinner: sp,
		keys:    keys,
		width:   80,
		height:  24,
	}
}

// Run starts the interactive list and blocks until the user quits.
func Run(ctx context.Context, engine *reconcile.Engine) error {
	p := tea.NewProgram(New(ctx, engine), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return m.issue(m.engine.Load())
}

// issue turns an operation into a command and starts the spinner if it was
// idle.
func (m Model) issue(op reconcile.Operation) tea.Cmd {
	ctx, engine := m.ctx, m.engine
	run := func() tea.Msg { return resultMsg(engine.Execute(ctx, op)) }
	if len(engine.Pending()) == 1 {
		return tea.Batch(run, m.spinner.Tick)
	}
	return run
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case resultMsg:
		return m.applyResult(reconcile.Result(msg))

	case spinner.TickMsg:
		if len(m.engine.Pending()) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.formOpen {
			return m.updateForm(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
				break
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Add):
			return m.openCreate()
		case key.Matches(msg, m.keys.Edit):
			return m.openEdit()
		case key.Matches(msg, m.keys.Delete):
			return m.deleteSelected()
		case key.Matches(msg, m.keys.Reload):
			op := m.engine.Load()
			m.setStatus("reloading...")
			cmd := tea.Batch(m.syncList(), m.issue(op))
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fc := m.engine.Form()
	switch msg.String() {
	case "enter":
		in, err := fc.Submit(model.City{Name: m.ti.Value()})
		if err != nil {
			// field marker is rendered from fc.Err()
			return m, nil
		}
		op, err := m.engine.Submit(in)
		if err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.setStatus(fmt.Sprintf("saving %q...", in.Draft.Name))
		cmd := tea.Batch(m.syncList(), m.issue(op))
		return m, cmd
	case "esc":
		fc.Cancel()
		m.closeForm()
		return m, nil
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	fc.SetName(m.ti.Value())
	return m, cmd
}

func (m Model) openCreate() (tea.Model, tea.Cmd) {
	fc := m.engine.Form()
	fc.StartCreate()
	m.openForm("New city...", "")
	return m, textinput.Blink
}

func (m Model) openEdit() (tea.Model, tea.Cmd) {
	it, ok := m.list.SelectedItem().(cityItem)
	if !ok {
		return m, nil
	}
	index := m.engine.Store().IndexOf(it.city.CityID)
	if index < 0 {
		return m, nil
	}
	m.engine.Form().StartEdit(index, it.city)
	m.openForm("Edit city name...", it.city.Name)
	return m, textinput.Blink
}

func (m *Model) openForm(placeholder, value string) {
	m.formOpen = true
	m.formSession = m.engine.Form().Session()
	m.ti.Placeholder = placeholder
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Focus()
	m.resize()
}

func (m *Model) closeForm() {
	m.formOpen = false
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	it, ok := m.list.SelectedItem().(cityItem)
	if !ok {
		return m, nil
	}
	op, err := m.engine.Delete(m.engine.Store().IndexOf(it.city.CityID))
	if err != nil {
		m.setError("delete: " + err.Error())
		return m, nil
	}
	m.setStatus(fmt.Sprintf("deleting %q...", it.city.Name))
	cmd := tea.Batch(m.syncList(), m.issue(op))
	return m, cmd
}

func (m Model) applyResult(res reconcile.Result) (tea.Model, tea.Cmd) {
	out := m.engine.Apply(res)
	if out.Failed() {
		m.setError(out.Err.Error())
	} else {
		m.setStatus(describe(out))
	}
	// the engine resets or cancels the form when it is done with the session
	if m.formOpen && m.engine.Form().Session() != m.formSession {
		m.closeForm()
	}
	cmd := m.syncList()
	return m, cmd
}

func describe(out reconcile.Outcome) string {
	switch out.Op.Kind {
	case reconcile.KindLoad:
		return "loaded"
	case reconcile.KindCreate:
		return fmt.Sprintf("added %q", out.City.Name)
	case reconcile.KindUpdate:
		return fmt.Sprintf("saved %q", out.City.Name)
	case reconcile.KindDelete:
		return fmt.Sprintf("deleted %q", out.City.Name)
	}
	return out.State.String()
}

// syncList rebuilds the list items from the store, marking rows with an
// update or delete in flight.
func (m *Model) syncList() tea.Cmd {
	busy := map[int64]bool{}
	for _, op := range m.engine.Pending() {
		if op.Kind == reconcile.KindUpdate || op.Kind == reconcile.KindDelete {
			busy[op.CityID] = true
		}
	}
	cities := m.engine.Store().Items()
	items := make([]list.Item, 0, len(cities))
	for _, c := range cities {
		items = append(items, cityItem{city: c, pending: busy[c.CityID]})
	}
	m.list.Title = m.title()
	return m.list.SetItems(items)
}

func (m Model) title() string {
	t := ui.Current()
	title := fmt.Sprintf("%s   %s %d",
		t.Title.Render("Cities"),
		t.Accent.Render("Total"), m.engine.Store().Len())
	if n := len(m.engine.Pending()); n > 0 {
		title += fmt.Sprintf("  %s %d", t.Pending.Render("pending"), n)
	}
	return title
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(s string)  { m.status, m.statusErr = s, true }

func (m *Model) resize() {
	h := m.height - 5
	if m.formOpen {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) View() string {
	t := ui.Current()
	content := m.list.View()

	if m.formOpen {
		fc := m.engine.Form()
		title := "New city"
		if fc.Mode() == form.ModeEdit {
			title = fmt.Sprintf("Edit city #%d", fc.Draft().CityID)
		}
		if err := fc.Err(); err != nil {
			title += " " + t.Error.Render(t.SymFail+" "+validationReason(err))
		}
		submit := t.Accent.Render("enter save")
		if !fc.Valid() {
			submit = t.Disabled.Render("enter save")
		}
		hint := submit + t.Muted.Render(" • esc cancel")
		bar := t.Frame.Border(t.Border).Padding(0, 1)
		content += "\n" + bar.Render(title+"\n"+m.ti.View()+"\n"+hint)
	}

	status := m.status
	switch {
	case m.statusErr:
		status = t.Error.Render(t.SymFail + " " + status)
	case status != "":
		status = t.Muted.Render(status)
	}
	if len(m.engine.Pending()) > 0 {
		status = m.spinner.View() + " " + status
	}
	content += "\n" + status

	return panelString(content)
}

func validationReason(err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

// helpers for View
func panelString(inner string) string {
	t := ui.Current()
	return t.Frame.
		Border(t.Border).
		Padding(0, 1).
		Render(strings.TrimRight(inner, "\n"))
}
