// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/log/impl/k8s"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

// FocusMode represents which component has focus
type FocusMode int

const (
	FocusLog FocusMode = iota
	FocusSearch
	FocusPrompt
	FocusPicker
)

// PromptKind is the query value the prompt edits.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptKeyword
	PromptSince
	PromptTail
	PromptContext
)

func (k PromptKind) label() string {
	switch k {
	case PromptKeyword:
		return "Log keyword: "
	case PromptSince:
		return "Since (30m, 2h, YYYY-MM-DD, HH:MM): "
	case PromptTail:
		return "Tail lines (0 = all): "
	case PromptContext:
		return "Context lines: "
	}
	return ""
}

// Session is the part of a log session the viewer drives.
type Session interface {
	Refresh(ctx context.Context) error
	SetTarget(ctx context.Context, sel session.Selector) error
	SetKeyword(ctx context.Context, keyword string) error
	SetSinceSeconds(ctx context.Context, n int64) error
	SetTailLines(n int) error
	SetContextLines(n int) error
	ToggleFollow() bool
	SetMatchMode(mode highlight.MatchMode) error
	UpdateSearch(keyword string)
	CloseSearch() error
	SearchNext(keyword string) (highlight.Interval, bool)
	SearchPrevious(keyword string) (highlight.Interval, bool)
	Snapshot() session.Snapshot
}

// TargetLister lists the pods logs can be viewed for.
type TargetLister interface {
	ListTargets(ctx context.Context, namespace, filter string) ([]k8s.Target, error)
}

// pickerItem is one container of a pod in the target picker.
type pickerItem struct {
	selector session.Selector
	phase    string
}

// TargetsMsg delivers the result of a pod listing
type TargetsMsg struct {
	Targets []k8s.Target
	Err     error
}

// ErrorMsg is sent when an operation started from the viewer fails
type ErrorMsg struct {
	Err error
}

// MatchMsg reports the result of a search navigation
type MatchMsg struct {
	Match highlight.Interval
	Found bool
}

// ConfigReloadedMsg is sent when the config file changed on disk
type ConfigReloadedMsg struct {
	Config *config.Config
}

// ClearStatusMsg is sent to clear status messages
type ClearStatusMsg struct{}

// renderMsg redraws the log text after document changes
type renderMsg struct{}

// renderInterval is how long document batches are collected before the log
// text is rendered again.
const renderInterval = 16 * time.Millisecond

// Model is the main TUI state
type Model struct {
	// Window dimensions
	Width  int
	Height int

	Focus    FocusMode
	Prompt   PromptKind
	ShowHelp bool

	// confirmTailZero is set after a tail of 0 was entered once
	confirmTailZero bool
	searchKeyword   string

	// pending document changes not rendered yet
	renderPending bool
	pendingView   viewState

	// Components
	Doc         *Document
	Viewport    viewport.Model
	SearchInput textinput.Model
	PromptInput textinput.Model
	FilterInput textinput.Model
	StatusBar   StatusBar
	Help        help.Model

	// Target picker
	targets      []k8s.Target
	pickerItems  []pickerItem
	pickerCursor int
	pickerErr    error

	// Styling
	Styles Styles
	Keys   KeyMap

	session Session
	lister  TargetLister
	ctx     context.Context
	now     func() time.Time

	// Copy writes to the system clipboard
	Copy func(string) error
	// OnTarget is called after a new target was fetched successfully
	OnTarget func(session.Selector)
}

// New creates a new TUI model
func New(ctx context.Context, s Session, lister TargetLister) Model {
	vp := viewport.New(80, 20)
	vp.SetContent("")

	search := textinput.New()
	search.Placeholder = "Search..."
	search.Prompt = "/"
	search.CharLimit = 256

	prompt := textinput.New()
	prompt.CharLimit = 256

	filter := textinput.New()
	filter.Placeholder = "filter namespace or pod"
	filter.Prompt = "> "
	filter.CharLimit = 128

	return Model{
		Width:       80,
		Height:      24,
		Focus:       FocusLog,
		Doc:         NewDocument(),
		Viewport:    vp,
		SearchInput: search,
		PromptInput: prompt,
		FilterInput: filter,
		StatusBar:   NewStatusBar(),
		Help:        help.New(),
		Styles:      DefaultStyles(),
		Keys:        DefaultKeyMap(),
		session:     s,
		lister:      lister,
		ctx:         ctx,
		now:         time.Now,
		Copy:        clipboard.WriteAll,
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	if m.session.Snapshot().Query.Selector.Empty() && m.lister != nil {
		return func() tea.Msg { return openPickerMsg{} }
	}
	return m.sessionCmd("refresh", m.session.Refresh)
}

type openPickerMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.updateViewportSizes()
		return m, nil

	case tea.KeyMsg:
		switch m.Focus {
		case FocusSearch:
			return m.handleSearchInput(msg)
		case FocusPrompt:
			return m.handlePromptInput(msg)
		case FocusPicker:
			return m.handlePicker(msg)
		}
		return m.handleKeyPress(msg)

	case DocumentBatchMsg:
		for _, op := range msg.ops {
			op(m.Doc, &m.pendingView)
		}
		if m.renderPending {
			return m, nil
		}
		m.renderPending = true
		return m, tea.Tick(renderInterval, func(time.Time) tea.Msg { return renderMsg{} })

	case renderMsg:
		m.renderDocument()
		return m, nil

	case StatusMsg:
		m.StatusBar.Snapshot = msg.Snapshot
		return m, nil

	case MatchMsg:
		if !msg.Found {
			cmd := m.showStatusMessage(fmt.Sprintf("No match for %q", m.searchKeyword))
			return m, cmd
		}
		return m, nil

	case TargetsMsg:
		m.targets, m.pickerErr = msg.Targets, msg.Err
		m.filterTargets()
		return m, nil

	case openPickerMsg:
		return m.openPicker()

	case ErrorMsg:
		log.Warn("tui: %v", msg.Err)
		cmd := m.showStatusMessage(msg.Err.Error())
		return m, cmd

	case ConfigReloadedMsg:
		cmd := m.applyConfig(msg.Config)
		return m, cmd

	case ClearStatusMsg:
		m.StatusBar.ClearMessage()
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowHelp = !m.ShowHelp
		m.Help.ShowAll = m.ShowHelp
		m.updateViewportSizes()
		return m, nil

	case key.Matches(msg, m.Keys.Search):
		m.Focus = FocusSearch
		m.SearchInput.SetValue(m.searchKeyword)
		m.SearchInput.CursorEnd()
		m.SearchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.Keys.NextMatch):
		return m, m.navigateCmd(true)

	case key.Matches(msg, m.Keys.PrevMatch):
		return m, m.navigateCmd(false)

	case key.Matches(msg, m.Keys.CloseSearch):
		if m.searchKeyword == "" {
			return m, nil
		}
		m.searchKeyword = ""
		return m, m.errCmd(m.session.CloseSearch())

	case key.Matches(msg, m.Keys.MatchMode):
		mode := nextMatchMode(m.session.Snapshot().Query.MatchMode)
		if err := m.session.SetMatchMode(mode); err != nil {
			return m, m.errCmd(err)
		}
		cmd := m.showStatusMessage("Match mode: " + string(mode))
		return m, cmd

	case key.Matches(msg, m.Keys.Target):
		return m.openPicker()

	case key.Matches(msg, m.Keys.Keyword):
		return m.openPrompt(PromptKeyword, m.session.Snapshot().Query.LogKeyword)

	case key.Matches(msg, m.Keys.Since):
		return m.openPrompt(PromptSince, "")

	case key.Matches(msg, m.Keys.Tail):
		return m.openPrompt(PromptTail, strconv.Itoa(m.session.Snapshot().Query.TailLines))

	case key.Matches(msg, m.Keys.Context):
		return m.openPrompt(PromptContext, strconv.Itoa(m.session.Snapshot().Query.ContextLines))

	case key.Matches(msg, m.Keys.Follow):
		on := m.session.ToggleFollow()
		statusMsg := "Follow: OFF"
		if on {
			statusMsg = "Follow: ON"
		}
		cmd := m.showStatusMessage(statusMsg)
		return m, cmd

	case key.Matches(msg, m.Keys.Refresh):
		return m, m.sessionCmd("refresh", m.session.Refresh)

	case key.Matches(msg, m.Keys.Copy):
		cmd := m.copySelectedLine()
		return m, cmd

	case key.Matches(msg, m.Keys.Up):
		m.Viewport.ScrollUp(1)
	case key.Matches(msg, m.Keys.Down):
		m.Viewport.ScrollDown(1)
	case key.Matches(msg, m.Keys.PageUp):
		m.Viewport.PageUp()
	case key.Matches(msg, m.Keys.PageDown):
		m.Viewport.PageDown()
	case key.Matches(msg, m.Keys.Home):
		m.Viewport.GotoTop()
	case key.Matches(msg, m.Keys.End):
		m.Viewport.GotoBottom()
	}
	return m, nil
}

// handleSearchInput handles input when in search mode. Every edit schedules
// a debounced search; Enter jumps to the next match.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.Focus = FocusLog
		m.SearchInput.Blur()
		m.searchKeyword = ""
		return m, m.errCmd(m.session.CloseSearch())
	case tea.KeyEnter:
		m.Focus = FocusLog
		m.SearchInput.Blur()
		m.searchKeyword = m.SearchInput.Value()
		if m.searchKeyword == "" {
			return m, m.errCmd(m.session.CloseSearch())
		}
		return m, m.navigateCmd(true)
	case tea.KeyUp, tea.KeyCtrlP:
		m.searchKeyword = m.SearchInput.Value()
		return m, m.navigateCmd(false)
	case tea.KeyDown, tea.KeyCtrlN:
		m.searchKeyword = m.SearchInput.Value()
		return m, m.navigateCmd(true)
	}

	before := m.SearchInput.Value()
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	if value := m.SearchInput.Value(); value != before {
		m.searchKeyword = value
		if value == "" {
			return m, tea.Batch(cmd, m.errCmd(m.session.CloseSearch()))
		}
		m.session.UpdateSearch(value)
	}
	return m, cmd
}

func (m Model) openPrompt(kind PromptKind, value string) (tea.Model, tea.Cmd) {
	m.Focus = FocusPrompt
	m.Prompt = kind
	m.confirmTailZero = false
	m.PromptInput.Prompt = kind.label()
	m.PromptInput.SetValue(value)
	m.PromptInput.CursorEnd()
	m.PromptInput.Focus()
	return m, textinput.Blink
}

func (m Model) closePrompt() Model {
	m.Focus = FocusLog
	m.Prompt = PromptNone
	m.confirmTailZero = false
	m.PromptInput.Blur()
	return m
}

// handlePromptInput edits one query value; Enter applies it.
func (m Model) handlePromptInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		return m.closePrompt(), nil
	case tea.KeyEnter:
		return m.applyPrompt(strings.TrimSpace(m.PromptInput.Value()))
	}
	var cmd tea.Cmd
	m.PromptInput, cmd = m.PromptInput.Update(msg)
	m.confirmTailZero = false
	return m, cmd
}

func (m Model) applyPrompt(value string) (tea.Model, tea.Cmd) {
	switch m.Prompt {
	case PromptKeyword:
		m = m.closePrompt()
		return m, m.sessionCmd("keyword", func(ctx context.Context) error {
			return m.session.SetKeyword(ctx, value)
		})

	case PromptSince:
		if value == "" {
			m = m.closePrompt()
			return m, m.sessionCmd("since", func(ctx context.Context) error {
				return m.session.SetSinceSeconds(ctx, 0)
			})
		}
		now := m.now()
		start, err := ty.ParseStart(value, now)
		if err != nil {
			cmd := m.showStatusMessage(err.Error())
			return m, cmd
		}
		seconds, err := ty.SecondsSince(start, now)
		if err != nil {
			cmd := m.showStatusMessage(err.Error())
			return m, cmd
		}
		m = m.closePrompt()
		return m, m.sessionCmd("since", func(ctx context.Context) error {
			return m.session.SetSinceSeconds(ctx, seconds)
		})

	case PromptTail:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			cmd := m.showStatusMessage("Tail lines must be a number >= 0")
			return m, cmd
		}
		if n == 0 && !m.confirmTailZero {
			m.confirmTailZero = true
			cmd := m.showStatusMessage("Tail 0 fetches the whole log, press Enter again to confirm")
			return m, cmd
		}
		m = m.closePrompt()
		if err := m.session.SetTailLines(n); err != nil {
			return m, m.errCmd(err)
		}
		return m, m.sessionCmd("refresh", m.session.Refresh)

	case PromptContext:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			cmd := m.showStatusMessage("Context lines must be a number >= 0")
			return m, cmd
		}
		m = m.closePrompt()
		if err := m.session.SetContextLines(n); err != nil {
			return m, m.errCmd(err)
		}
		return m, m.sessionCmd("refresh", m.session.Refresh)
	}
	return m.closePrompt(), nil
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	if m.lister == nil {
		cmd := m.showStatusMessage("Pod listing is not available")
		return m, cmd
	}
	m.Focus = FocusPicker
	m.pickerCursor = 0
	m.FilterInput.SetValue("")
	m.FilterInput.Focus()
	lister, ctx := m.lister, m.ctx
	return m, tea.Batch(textinput.Blink, func() tea.Msg {
		targets, err := lister.ListTargets(ctx, "", "")
		return TargetsMsg{Targets: targets, Err: err}
	})
}

// filterTargets expands the listed pods into one item per container,
// keeping those whose namespace or pod contains the filter.
func (m *Model) filterTargets() {
	needle := strings.ToLower(strings.TrimSpace(m.FilterInput.Value()))
	m.pickerItems = m.pickerItems[:0]
	for _, t := range m.targets {
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Namespace), needle) &&
			!strings.Contains(strings.ToLower(t.Pod), needle) {
			continue
		}
		containers := t.Containers
		if len(containers) == 0 {
			containers = []string{""}
		}
		for _, c := range containers {
			m.pickerItems = append(m.pickerItems, pickerItem{
				selector: session.Selector{Namespace: t.Namespace, Pod: t.Pod, Container: c},
				phase:    t.Phase,
			})
		}
	}
	if m.pickerCursor >= len(m.pickerItems) {
		m.pickerCursor = max(0, len(m.pickerItems)-1)
	}
}

// handlePicker handles input in the target picker
func (m Model) handlePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.Focus = FocusLog
		m.FilterInput.Blur()
		return m, nil
	case tea.KeyUp:
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.pickerCursor < len(m.pickerItems)-1 {
			m.pickerCursor++
		}
		return m, nil
	case tea.KeyEnter:
		if len(m.pickerItems) == 0 {
			return m, nil
		}
		sel := m.pickerItems[m.pickerCursor].selector
		m.Focus = FocusLog
		m.FilterInput.Blur()
		onTarget := m.OnTarget
		return m, m.sessionCmd("target", func(ctx context.Context) error {
			if err := m.session.SetTarget(ctx, sel); err != nil {
				return err
			}
			if onTarget != nil {
				onTarget(sel)
			}
			return nil
		})
	}

	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.filterTargets()
	return m, cmd
}

// sessionCmd runs a blocking session operation off the update loop.
func (m Model) sessionCmd(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return ErrorMsg{Err: fmt.Errorf("%s: %w", name, err)}
		}
		return nil
	}
}

func (m Model) navigateCmd(forward bool) tea.Cmd {
	keyword := m.searchKeyword
	if keyword == "" {
		return nil
	}
	s := m.session
	return func() tea.Msg {
		var iv highlight.Interval
		var ok bool
		if forward {
			iv, ok = s.SearchNext(keyword)
		} else {
			iv, ok = s.SearchPrevious(keyword)
		}
		return MatchMsg{Match: iv, Found: ok}
	}
}

func (m Model) errCmd(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return func() tea.Msg { return ErrorMsg{Err: err} }
}

// applyConfig makes reloaded defaults apply to the next fetch.
func (m *Model) applyConfig(cfg *config.Config) tea.Cmd {
	if cfg == nil {
		return nil
	}
	q := cfg.Query()
	if err := m.session.SetTailLines(q.TailLines); err != nil {
		return m.errCmd(err)
	}
	if err := m.session.SetContextLines(q.ContextLines); err != nil {
		return m.errCmd(err)
	}
	if err := m.session.SetMatchMode(q.MatchMode); err != nil {
		return m.errCmd(err)
	}
	m.Styles.Tags = TagStylesFromConfig(cfg.Styles)
	m.updateViewportContent()
	log.Info("tui: config reloaded from %s", cfg.Path)
	return m.showStatusMessage("Config reloaded")
}

// copySelectedLine copies the line of the selected match to the system clipboard
func (m *Model) copySelectedLine() tea.Cmd {
	start, _, ok := m.Doc.Selection()
	if !ok {
		return m.showStatusMessage("No match selected")
	}
	if err := m.Copy(m.Doc.LineText(start)); err != nil {
		return m.showStatusMessage(fmt.Sprintf("Clipboard error: %v", err))
	}
	return m.showStatusMessage("Line copied to clipboard")
}

// showStatusMessage temporarily shows a message in the status bar
// Returns a command that will clear the message after a delay
func (m *Model) showStatusMessage(message string) tea.Cmd {
	m.StatusBar.SetMessage(message)
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// reveal scrolls so that the line holding offset is visible, centered when
// it was out of view.
func (m *Model) reveal(offset int) {
	line := m.Doc.LineAt(offset)
	top := m.Viewport.YOffset
	if line >= top && line < top+m.Viewport.Height {
		return
	}
	m.Viewport.SetYOffset(max(0, line-m.Viewport.Height/2))
}

// updateViewportSizes recalculates component sizes
func (m *Model) updateViewportSizes() {
	headerHeight := 1 // title
	footerHeight := 2 // input line + help
	if m.ShowHelp {
		footerHeight = 1 + len(m.Keys.FullHelp()[0])
	}
	mainHeight := m.Height - headerHeight - m.StatusBar.Height() - footerHeight
	if mainHeight < 1 {
		mainHeight = 1
	}

	m.StatusBar.Width = m.Width
	m.Help.Width = m.Width
	m.Viewport.Width = m.Width
	m.Viewport.Height = mainHeight
}

// renderDocument shows the document changes collected since the last render
// and applies their scroll requests.
func (m *Model) renderDocument() {
	v := m.pendingView
	m.renderPending, m.pendingView = false, viewState{}
	m.updateViewportContent()
	switch {
	case v.hasReveal:
		m.reveal(v.reveal)
	case v.scrollToEnd:
		m.Viewport.GotoBottom()
	}
}

// updateViewportContent refreshes the log text
func (m *Model) updateViewportContent() {
	atBottom := m.Viewport.AtBottom()
	m.Viewport.SetContent(m.Doc.Render(m.Styles.Tags))
	if atBottom && m.StatusBar.Snapshot.Query.SearchRunning {
		m.Viewport.GotoBottom()
	}
}

func (m Model) View() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Focus == FocusPicker {
		return m.renderPicker()
	}

	sections := []string{
		m.renderHeader(),
		m.Viewport.View(),
		m.StatusBar.View(),
		m.renderInputLine(),
		m.Help.View(m.Keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.Styles.TabActive.Render("k8s logs")
	snap := m.StatusBar.Snapshot
	target := "no target"
	if !snap.Query.Selector.Empty() {
		target = snap.Query.Selector.String()
	}
	return m.Styles.TabBar.Width(m.Width).Render(lipgloss.JoinHorizontal(lipgloss.Top, title, target))
}

func (m Model) renderInputLine() string {
	switch m.Focus {
	case FocusSearch:
		return m.Styles.InputActive.Width(m.Width).Render(m.SearchInput.View())
	case FocusPrompt:
		return m.Styles.InputActive.Width(m.Width).Render(m.PromptInput.View())
	}
	if m.searchKeyword != "" {
		snap := m.StatusBar.Snapshot
		label := fmt.Sprintf("%d/%d", snap.MatchCurrent, snap.MatchTotal)
		return m.Styles.Input.Width(m.Width).Render(
			m.Styles.Prompt.Render("/") + m.searchKeyword + "  " + m.Styles.ItemMuted.Render(label))
	}
	return m.Styles.Input.Width(m.Width).Render(m.Styles.ItemMuted.Render("press / to search"))
}

// renderPicker renders the target selection modal
func (m Model) renderPicker() string {
	title := m.Styles.Title.Render("Select Pod")

	var items []string
	switch {
	case m.pickerErr != nil:
		items = append(items, m.Styles.Error.Render(m.pickerErr.Error()))
	case m.targets == nil:
		items = append(items, m.Styles.ItemMuted.Render("  loading pods..."))
	case len(m.pickerItems) == 0:
		items = append(items, m.Styles.ItemMuted.Render("  no pod matches"))
	}

	// keep the cursor inside a window of the list
	height := max(3, m.Height-12)
	first := max(0, min(m.pickerCursor-height/2, len(m.pickerItems)-height))
	for i := first; i < len(m.pickerItems) && i < first+height; i++ {
		item := m.pickerItems[i]
		style := m.Styles.Item
		if i == m.pickerCursor {
			style = m.Styles.ItemSelected
		}
		items = append(items, style.Render(fmt.Sprintf("  %s", item.selector))+
			m.Styles.ItemMuted.Render(" "+item.phase))
	}

	help := m.Styles.HelpBar.Render("↑↓ navigate • type to filter • Enter select • Esc cancel")
	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.FilterInput.View(),
		"",
		strings.Join(items, "\n"),
		"",
		help,
	)

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Width(max(40, m.Width*2/3)).
		Align(lipgloss.Left)

	return lipgloss.Place(
		m.Width,
		m.Height,
		lipgloss.Center,
		lipgloss.Center,
		modalStyle.Render(content),
	)
}

func nextMatchMode(mode highlight.MatchMode) highlight.MatchMode {
	switch mode {
	case highlight.ModeSubstring:
		return highlight.ModeWord
	case highlight.ModeWord:
		return highlight.ModeRegex
	}
	return highlight.ModeSubstring
}
