// Package viewstate is the presentation-only state of an editor session:
// which screen is shown, which tab is active and which menus are open. It is
// a pure reducer and never touches the article.
package viewstate

type Screen int

const (
	ScreenLanding Screen = iota
	ScreenWizard
	ScreenEditor
)

func (s Screen) String() string {
	switch s {
	case ScreenLanding:
		return "landing"
	case ScreenWizard:
		return "wizard"
	case ScreenEditor:
		return "editor"
	}
	return "unknown"
}

type Tab int

const (
	TabEdit Tab = iota
	TabPreview
)

type State struct {
	Screen         Screen
	Tab            Tab
	SidebarOpen    bool
	ExportMenuOpen bool
	LangMenuOpen   bool
	// Narrow is set for small viewports; the sidebar starts hidden there.
	Narrow bool
}

type EventKind int

const (
	Start EventKind = iota
	Drafted
	Back
	ToggleTab
	ToggleSidebar
	ToggleExportMenu
	ToggleLangMenu
	CloseMenus
	Resize
)

type Event struct {
	Kind EventKind
	// Narrow is read by Resize only.
	Narrow bool
}

func Initial() State {
	return State{Screen: ScreenLanding, SidebarOpen: true}
}

// Reduce returns the state after ev. The last toggle wins.
func Reduce(s State, ev Event) State {
	switch ev.Kind {
	case Start:
		if s.Screen == ScreenLanding {
			s.Screen = ScreenWizard
		}
	case Drafted:
		s.Screen = ScreenEditor
		s.Tab = TabEdit
		s.SidebarOpen = !s.Narrow
		s = closeMenus(s)
	case Back:
		switch s.Screen {
		case ScreenEditor:
			s.Screen = ScreenWizard
		case ScreenWizard:
			s.Screen = ScreenLanding
		}
		s = closeMenus(s)
	case ToggleTab:
		if s.Tab == TabEdit {
			s.Tab = TabPreview
		} else {
			s.Tab = TabEdit
		}
	case ToggleSidebar:
		s.SidebarOpen = !s.SidebarOpen
	case ToggleExportMenu:
		s.ExportMenuOpen = !s.ExportMenuOpen
	case ToggleLangMenu:
		s.LangMenuOpen = !s.LangMenuOpen
	case CloseMenus:
		s = closeMenus(s)
	case Resize:
		s.Narrow = ev.Narrow
		if ev.Narrow {
			s.SidebarOpen = false
		}
	}
	return s
}

func closeMenus(s State) State {
	s.ExportMenuOpen = false
	s.LangMenuOpen = false
	return s
}
