// Command menu is a thin interactive client over pkg/engine, talking
// to it only through the same Dispatch request/response surface
// cmd/server exposes over HTTP.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/config"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/engine"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AFFF")).MarginLeft(2).MarginTop(1)
	tabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#00AFFF")).Padding(0, 2)
	dimTab     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Padding(0, 2)
	contentBox = lipgloss.NewStyle().MarginLeft(2).MarginTop(1).BorderStyle(lipgloss.RoundedBorder()).Padding(1, 2)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#55FF55")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1).MarginLeft(2)
)

type view int

const (
	findView view = iota
	insertView
	resultsView
)

type keyMap struct {
	Tab   key.Binding
	Enter key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
	Quit:  key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Tab, k.Enter, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Enter, k.Quit}}
}

type model struct {
	eng *engine.Engine

	currentView view
	inputs      []textinput.Model
	focus       int
	results     list.Model
	help        help.Model
	keys        keyMap
	message     string
	messageErr  bool
	width       int
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 500
	ti.Width = 60
	return ti
}

func initialModel(eng *engine.Engine) model {
	userI := newInput("user (default: system)")
	dbI := newInput("database")
	collI := newInput(`collection`)
	filterI := newInput(`filter, e.g. {"id":"1"}`)
	dataI := newInput(`record JSON, e.g. {"id":"1","email":"a"}`)

	inputs := []textinput.Model{userI, dbI, collI, filterI, dataI}
	inputs[0].Focus()

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "results"

	return model{
		eng:         eng,
		currentView: findView,
		inputs:      inputs,
		results:     l,
		help:        help.New(),
		keys:        keys,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.results.SetSize(msg.Width-4, msg.Height-12)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.cycleView()
		case key.Matches(msg, m.keys.Enter):
			m.runAction()
		case msg.String() == "ctrl+n":
			m.focus = (m.focus + 1) % len(m.inputs)
			m.focusInput()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *model) focusInput() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *model) cycleView() {
	m.currentView = (m.currentView + 1) % 3
}

func (m *model) runAction() {
	user := valueOr(m.inputs[0].Value(), "system")
	db := m.inputs[1].Value()
	coll := m.inputs[2].Value()

	switch m.currentView {
	case findView:
		filter, err := parseJSONObject(m.inputs[3].Value())
		if err != nil {
			m.setError(err)
			return
		}
		resp := m.eng.Dispatch(map[string]any{
			"action": "find", "userId": user, "dbName": db, "collection": coll, "filter": filter,
		})
		m.setResults(resp)

	case insertView:
		data, err := parseJSONObject(m.inputs[4].Value())
		if err != nil {
			m.setError(err)
			return
		}
		resp := m.eng.Dispatch(map[string]any{
			"action": "insert", "userId": user, "dbName": db, "collection": coll, "data": data,
		})
		m.setResults(resp)

	case resultsView:
		// resultsView only displays the last outcome; nothing to run.
	}
}

func (m *model) setError(err error) {
	m.message = err.Error()
	m.messageErr = true
}

func (m *model) setResults(resp map[string]any) {
	if errMsg, ok := resp["error"]; ok {
		m.message = fmt.Sprintf("%v", errMsg)
		m.messageErr = true
		return
	}
	m.message = "ok"
	m.messageErr = false
	m.currentView = resultsView

	items := []list.Item{}
	if results, ok := resp["results"].([]any); ok {
		for _, r := range results {
			items = append(items, listItem(fmt.Sprintf("%v", r)))
		}
	} else {
		items = append(items, listItem(fmt.Sprintf("%v", resp)))
	}
	m.results.SetItems(items)
}

type listItem string

func (i listItem) Title() string       { return string(i) }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return string(i) }

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("storage engine console"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case findView:
		s.WriteString(contentBox.Render("find\n\n" + m.renderInputs(0, 1, 2, 3)))
	case insertView:
		s.WriteString(contentBox.Render("insert\n\n" + m.renderInputs(0, 1, 2, 4)))
	case resultsView:
		s.WriteString(contentBox.Render(m.results.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(okStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	labels := []string{"find", "insert", "results"}
	var rendered []string
	for i, label := range labels {
		if view(i) == m.currentView {
			rendered = append(rendered, tabStyle.Render(label))
		} else {
			rendered = append(rendered, dimTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderInputs(indices ...int) string {
	var lines []string
	for _, i := range indices {
		lines = append(lines, m.inputs[i].View())
	}
	return strings.Join(lines, "\n")
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func main() {
	configPath := "./config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	eng := engine.New(cfg.DataRoot, cfg.MemtableLimit, cfg.CompactionThreshold, nil)
	eng.LSM().StartBackgroundCompaction(cfg.CompactionInterval)
	defer eng.Close()
	defer eng.LSM().Stop()

	p := tea.NewProgram(initialModel(eng), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("error running menu: %v", err)
	}
}

func parseJSONObject(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	var v map[string]any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}
