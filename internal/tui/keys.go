package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/gamebase-cli/internal/session"
)

// Letters go to the query, so list and game commands live on arrows,
// paging keys and control combinations.
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Select      key.Binding
	Cancel      key.Binding
	Install     key.Binding
	Uninstall   key.Binding
	Filter      key.Binding
	PrevShot    key.Binding
	NextShot    key.Binding
	Backspace   key.Binding
	Delete      key.Binding
	CaretLeft   key.Binding
	CaretRight  key.Binding
	CaretHome   key.Binding
	CaretEnd    key.Binding
	ClearQuery  key.Binding
	Help        key.Binding
	Quit        key.Binding
	Yes         key.Binding
	No          key.Binding
	Acknowledge key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("PgDn", "page down")),
		Home:        key.NewBinding(key.WithKeys("home"), key.WithHelp("Home", "first")),
		End:         key.NewBinding(key.WithKeys("end"), key.WithHelp("End", "last")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "start/install")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "clear/leave")),
		Install:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^R", "(re)install")),
		Uninstall:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("^X", "uninstall")),
		Filter:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "filter")),
		PrevShot:    key.NewBinding(key.WithKeys("shift+left"), key.WithHelp("S-←", "prev shot")),
		NextShot:    key.NewBinding(key.WithKeys("shift+right"), key.WithHelp("S-→", "next shot")),
		Backspace:   key.NewBinding(key.WithKeys("backspace")),
		Delete:      key.NewBinding(key.WithKeys("delete")),
		CaretLeft:   key.NewBinding(key.WithKeys("left")),
		CaretRight:  key.NewBinding(key.WithKeys("right")),
		CaretHome:   key.NewBinding(key.WithKeys("ctrl+a")),
		CaretEnd:    key.NewBinding(key.WithKeys("ctrl+e")),
		ClearQuery:  key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("^U", "clear query")),
		Help:        key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "help")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^C", "quit")),
		Yes:         key.NewBinding(key.WithKeys("y", "Y", "enter")),
		No:          key.NewBinding(key.WithKeys("n", "N", "esc")),
		Acknowledge: key.NewBinding(key.WithKeys("enter", "esc", " ")),
	}
}

// action translates a key press in browse mode into a session action.
func (k keyMap) action(msg tea.KeyMsg) session.Action {
	pairs := []struct {
		b key.Binding
		a session.Action
	}{
		{k.Up, session.ActionUp},
		{k.Down, session.ActionDown},
		{k.PageUp, session.ActionPageUp},
		{k.PageDown, session.ActionPageDown},
		{k.Home, session.ActionHome},
		{k.End, session.ActionEnd},
		{k.Select, session.ActionSelect},
		{k.Install, session.ActionInstall},
		{k.Uninstall, session.ActionUninstall},
		{k.Filter, session.ActionCycleFilter},
		{k.PrevShot, session.ActionPrevShot},
		{k.NextShot, session.ActionNextShot},
		{k.Backspace, session.ActionBackspace},
		{k.Delete, session.ActionDelete},
		{k.CaretLeft, session.ActionCaretLeft},
		{k.CaretRight, session.ActionCaretRight},
		{k.CaretHome, session.ActionCaretHome},
		{k.CaretEnd, session.ActionCaretEnd},
		{k.ClearQuery, session.ActionClearQuery},
	}
	for _, p := range pairs {
		if key.Matches(msg, p.b) {
			return p.a
		}
	}
	return session.ActionNone
}

func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Filter, k.Install, k.Uninstall, k.NextShot, k.Help, k.Quit}
}

func (k keyMap) fullHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End,
		k.Select, k.Cancel, k.Install, k.Uninstall, k.Filter,
		k.PrevShot, k.NextShot, k.ClearQuery, k.Help, k.Quit,
	}
}

func keyMatches(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}
