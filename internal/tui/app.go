package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/gamebase-cli/internal/cache"
	"github.com/JohnDeved/gamebase-cli/internal/install"
	"github.com/JohnDeved/gamebase-cli/internal/media"
	"github.com/JohnDeved/gamebase-cli/internal/session"
)

// mode is the modal state of the UI.
type mode int

const (
	modeBrowse mode = iota
	modeConfirm
	modeBusy
	modeMessage
)

// Layout rows outside the result list: header, query and rule above it;
// scroll line, rule, details, rule and status bar below.
const (
	listTop      = 3
	detailHeight = 7
	chromeRows   = listTop + 1 + 1 + detailHeight + 1 + 1
)

// Messages
type cacheEventMsg struct{ ev cache.Event }
type contentChangedMsg struct{}
type tickMsg struct{}
type statusClearMsg struct{ id int }

type installProgressMsg struct{ p install.Progress }

type installDoneMsg struct {
	row  int
	name string
	err  error
}

type uninstallDoneMsg struct {
	row  int
	name string
	err  error
}

// job is shared between copies of the model so a running install can be
// cancelled from Update.
type job struct {
	cancel context.CancelFunc
}

// sender lets commands post messages to the running program.
type sender struct {
	p *tea.Program
}

func (s *sender) send(msg tea.Msg) {
	if s != nil && s.p != nil {
		s.p.Send(msg)
	}
}

// Options wires the UI to a browsing session.
type Options struct {
	Session  *session.Session
	Pipeline *install.Pipeline
	Cache    *cache.Cache
	// Watcher may be nil.
	Watcher *install.Watcher
	// Notice is shown in a message box on start, e.g. a catalog update hint.
	Notice string
}

// Model is the main Bubble Tea model.
type Model struct {
	sess     *session.Session
	pipeline *install.Pipeline
	cache    *cache.Cache
	watcher  *install.Watcher
	keys     keyMap
	spinner  spinner.Model
	out      *sender

	width      int
	height     int
	mode       mode
	showHelp   bool
	helpOffset int

	confirm  *session.Confirm
	message  string
	isError  bool
	progress install.Progress
	busyName string
	job      *job

	statusMsg string
	statusID  int

	launch *media.Launch
}

// NewModel creates the TUI model.
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		sess:     opts.Session,
		pipeline: opts.Pipeline,
		cache:    opts.Cache,
		watcher:  opts.Watcher,
		keys:     defaultKeyMap(),
		spinner:  s,
		out:      &sender{},
		job:      &job{},
	}
	if opts.Notice != "" {
		m.mode = modeMessage
		m.message = opts.Notice
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitCacheEvent(),
		m.waitContentChange(),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sess.SetPageSize(pageSizeFor(m.height))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case cacheEventMsg:
		if !msg.ev.OK {
			log.Debug().Err(msg.ev.Err).Str("url", msg.ev.URL).Msg("screenshot unavailable")
		}
		m.sess.RefreshPreview()
		return m, m.waitCacheEvent()

	case tickMsg:
		if m.cache != nil && m.cache.TakeDirty() {
			m.sess.RefreshPreview()
		}
		return m, tick()

	case contentChangedMsg:
		// Our own installs touch the content root too; they report back
		// through installDoneMsg.
		if m.mode != modeBusy {
			if err := m.pipeline.Scan(); err != nil {
				log.Warn().Err(err).Msg("rescanning content directory")
			}
			m.sess.InstalledChanged()
		}
		return m, m.waitContentChange()

	case installProgressMsg:
		m.progress = msg.p
		return m, nil

	case installDoneMsg:
		m.job.cancel = nil
		m.sess.InstalledChanged()
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				m.mode = modeBrowse
				return m, m.setStatus(fmt.Sprintf("Install of %s canceled", msg.name))
			}
			return m.showMessage(installErrorText(msg.name, msg.err), true), nil
		}
		m.mode = modeBrowse
		return m, m.setStatus(fmt.Sprintf("Installed %s. Press Enter to start it", msg.name))

	case uninstallDoneMsg:
		m.sess.InstalledChanged()
		if msg.err != nil {
			return m.showMessage(fmt.Sprintf("Could not uninstall %s:\n%v", msg.name, msg.err), true), nil
		}
		m.mode = modeBrowse
		return m, m.setStatus(fmt.Sprintf("Uninstalled %s", msg.name))

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.job.cancel != nil {
			m.job.cancel()
		}
		return m, tea.Quit
	}

	switch m.mode {
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeBusy:
		if msg.Type == tea.KeyEsc && m.job.cancel != nil {
			m.job.cancel()
			return m, m.setStatus("Canceling...")
		}
		return m, nil
	case modeMessage:
		if keyMatches(msg, m.keys.Acknowledge) {
			m.mode = modeBrowse
			m.message = ""
		}
		return m, nil
	}

	if m.showHelp {
		switch {
		case keyMatches(msg, m.keys.Help) || msg.Type == tea.KeyEsc:
			m.showHelp = false
		case keyMatches(msg, m.keys.Up):
			m.helpOffset--
		case keyMatches(msg, m.keys.Down):
			m.helpOffset++
		case keyMatches(msg, m.keys.PageUp):
			m.helpOffset -= m.sess.PageSize()
		case keyMatches(msg, m.keys.PageDown):
			m.helpOffset += m.sess.PageSize()
		}
		m.clampHelpOffset(m.sess.PageSize() + 1)
		return m, nil
	}

	switch {
	case keyMatches(msg, m.keys.Help):
		m.showHelp = true
		m.helpOffset = 0
		return m, nil
	case msg.Type == tea.KeyEsc:
		if m.sess.Query() != "" {
			return m.handleOutcome(m.sess.Apply(session.ActionClearQuery))
		}
		return m.handleOutcome(m.sess.Apply(session.ActionCancel))
	case msg.Type == tea.KeyRunes && !msg.Alt:
		for _, r := range msg.Runes {
			m.sess.Insert(r)
		}
		return m, nil
	case msg.Type == tea.KeySpace:
		m.sess.Insert(' ')
		return m, nil
	}

	if a := m.keys.action(msg); a != session.ActionNone {
		return m.handleOutcome(m.sess.Apply(a))
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch {
	case keyMatches(msg, m.keys.Yes):
		m.confirm = nil
		if c.Kind == session.ConfirmUninstall {
			m.mode = modeBusy
			m.busyName = c.Name
			m.progress = install.Progress{Row: c.Row}
			return m, m.uninstallCmd(c.Row, c.Name)
		}
		return m.startInstall(c.Row, c.Name)
	case keyMatches(msg, m.keys.No):
		m.confirm = nil
		m.mode = modeBrowse
		return m, m.setStatus("Canceled")
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.helpOffset--
		case tea.MouseButtonWheelDown:
			m.helpOffset++
		}
		m.clampHelpOffset(m.sess.PageSize() + 1)
		return m, nil
	}
	if m.mode != modeBrowse {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.handleOutcome(m.sess.Apply(session.ActionUp))
	case tea.MouseButtonWheelDown:
		return m.handleOutcome(m.sess.Apply(session.ActionDown))
	case tea.MouseButtonLeft:
		// Clicking or dragging along the scroll line jumps through the list.
		if msg.Y == listTop+m.sess.PageSize() && msg.Action != tea.MouseActionRelease {
			return m.handleOutcome(m.sess.ScrollTo(scrollFraction(msg.X, m.width)))
		}
		if msg.Action != tea.MouseActionRelease {
			return m, nil
		}
		pos := msg.Y - listTop
		if pos < 0 || pos >= m.sess.PageSize() {
			return m, nil
		}
		before := m.sess.Cursor()
		m.sess.PickRow(pos)
		// Clicking the highlighted row again selects it.
		if m.sess.Cursor() == before && before.Pos == pos {
			return m.handleOutcome(m.sess.Apply(session.ActionSelect))
		}
	}
	return m, nil
}

// scrollFraction maps column x of a line width cells wide to [0,1].
func scrollFraction(x, width int) float64 {
	if width <= 1 {
		return 0
	}
	return float64(x) / float64(width-1)
}

func (m Model) handleOutcome(out session.Outcome) (tea.Model, tea.Cmd) {
	if out.Exit {
		m.launch = out.Launch
		return m, tea.Quit
	}
	if out.Confirm != nil {
		m.confirm = out.Confirm
		m.mode = modeConfirm
	}
	return m, nil
}

func (m Model) showMessage(text string, isError bool) Model {
	m.mode = modeMessage
	m.message = text
	m.isError = isError
	return m
}

func installErrorText(name string, err error) string {
	switch {
	case errors.Is(err, install.ErrArchive):
		return fmt.Sprintf("Could not extract %s: the downloaded archive is unreadable.", name)
	case errors.Is(err, install.ErrNoArchive):
		return fmt.Sprintf("%s has no downloadable archive.", name)
	default:
		return fmt.Sprintf("Could not install %s:\n%v", name, err)
	}
}

// Commands

func (m Model) startInstall(row int, name string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.job.cancel = cancel
	m.mode = modeBusy
	m.busyName = name
	m.progress = install.Progress{Row: row, State: install.Downloading, Total: -1}

	out := m.out
	p := m.pipeline
	cmd := func() tea.Msg {
		defer cancel()
		var last install.Progress
		err := p.Install(ctx, row, func(pr install.Progress) {
			// One message per state change or percent of progress.
			if pr.State == last.State && pr.Total == last.Total &&
				int(pr.Fraction()*100) == int(last.Fraction()*100) {
				return
			}
			last = pr
			out.send(installProgressMsg{p: pr})
		})
		return installDoneMsg{row: row, name: name, err: err}
	}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) uninstallCmd(row int, name string) tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		return uninstallDoneMsg{row: row, name: name, err: p.Uninstall(row)}
	}
}

func (m Model) waitCacheEvent() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	ch := m.cache.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return cacheEventMsg{ev: ev}
	}
}

func (m Model) waitContentChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.watcher.Changes()
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return contentChangedMsg{}
	}
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

func pageSizeFor(height int) int {
	n := height - chromeRows
	if n < 3 {
		n = 3
	}
	return n
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.queryView())
	sb.WriteString("\n")
	sb.WriteString(rule(m.width))
	sb.WriteString("\n")

	switch {
	case m.showHelp:
		sb.WriteString(padLines(m.helpView(m.sess.PageSize()+1), m.sess.PageSize()+1))
	case m.mode == modeConfirm:
		sb.WriteString(padLines(m.confirmView(), m.sess.PageSize()+1))
	case m.mode == modeBusy:
		sb.WriteString(padLines(m.busyView(), m.sess.PageSize()+1))
	case m.mode == modeMessage:
		sb.WriteString(padLines(m.messageView(), m.sess.PageSize()+1))
	default:
		sb.WriteString(m.listView())
	}

	sb.WriteString(rule(m.width))
	sb.WriteString("\n")
	sb.WriteString(m.detailView())
	sb.WriteString(rule(m.width))
	sb.WriteString("\n")

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString(statusBarStyle.Width(m.width).Render(truncateText(statusLine, m.width-2)))

	return sb.String()
}

// Run starts the TUI and returns the game the user chose to start, or nil
// when the browser was left without a selection.
func Run(opts Options) (*media.Launch, error) {
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	m.out.p = p

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if fm, ok := final.(Model); ok {
		return fm.launch, nil
	}
	return nil, nil
}
