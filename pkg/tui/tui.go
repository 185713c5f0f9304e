// Package tui provides a terminal user interface for mml2midi
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/mml2midi/pkg/converter"
)

// Parchment and ink, after the game's score sheets
var (
	inkBlue   = lipgloss.Color("#5FAFFF")
	goldLeaf  = lipgloss.Color("#FFD75F")
	parchment = lipgloss.Color("#E4D8B4")
	nightSky  = lipgloss.Color("#262640")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(goldLeaf).
			Background(nightSky).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(parchment).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(goldLeaf).
			Bold(true).
			PaddingLeft(2)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(inkBlue).
				PaddingLeft(4)

	statusStyle = lipgloss.NewStyle().
			Foreground(inkBlue).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(goldLeaf).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(inkBlue).
			Padding(1, 2)
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

var keys = keyMap{
	Up:    binding("navigate", "up", "k"),
	Down:  binding("navigate", "down", "j"),
	Enter: binding("select", "enter"),
	Back:  binding("back to menu", "esc"),
	Quit:  binding("quit", "q", "ctrl+c"),
}

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// Action is what a menu entry does with the picked file
type Action int

const (
	ActionConvert Action = iota
	ActionFormat
	ActionInspect
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	FromFormat  converter.Format
	ToFormat    converter.Format
}

var menuItems = []MenuItem{
	{Title: "MML → MIDI", Description: "Render an MML score as a Standard MIDI File", Action: ActionConvert, FromFormat: converter.FormatMML, ToFormat: converter.FormatMIDI},
	{Title: "MIDI → MML", Description: "Transcribe a MIDI file into a Mabinogi MML envelope", Action: ActionConvert, FromFormat: converter.FormatMIDI, ToFormat: converter.FormatMML},
	{Title: "Normalize MML", Description: "Rewrite an MML score in canonical form", Action: ActionFormat, FromFormat: converter.FormatMML, ToFormat: converter.FormatMML},
	{Title: "Inspect", Description: "Show the tracks and tempo changes of a score", Action: ActionInspect, FromFormat: converter.FormatMML},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

var extensions = map[converter.Format][]string{
	converter.FormatMML:  {".mml", ".txt"},
	converter.FormatMIDI: {".mid", ".midi"},
}

// Model represents the TUI model
type Model struct {
	conv         *converter.Converter
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	report       string
	item         MenuItem
	err          error
	width        int
	height       int
}

// resultMsg signals that the selected action finished
type resultMsg struct {
	outputFile string
	report     string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(conv *converter.Converter) Model {
	if conv == nil {
		conv = converter.New()
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mml", ".txt", ".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(goldLeaf)

	return Model{
		conv:       conv,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs every message while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, keys.Back):
				m.state = StateMenu
				return m, nil
			case key.Matches(keyMsg, keys.Quit):
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.run())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case key.Matches(msg, keys.Down):
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case key.Matches(msg, keys.Enter):
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = extensions[m.item.FromFormat]
		if m.item.Action == ActionInspect {
			m.filePicker.AllowedTypes = slices.Concat(extensions[converter.FormatMML], extensions[converter.FormatMIDI])
		}
		return m, m.filePicker.Init()
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter, keys.Back):
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.report = ""
		return m, nil
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) run() tea.Cmd {
	item, input, conv := m.item, m.selectedFile, m.conv
	return func() tea.Msg {
		switch item.Action {
		case ActionInspect:
			report, err := inspect(input)
			return resultMsg{report: report, err: err}
		case ActionFormat:
			output := outputPath(input, ".fmt.mml")
			return resultMsg{outputFile: output, err: conv.ConvertFile(input, output)}
		default:
			output := outputPath(input, extensions[item.ToFormat][0])
			return resultMsg{outputFile: output, err: conv.ConvertFile(input, output)}
		}
	}
}

func outputPath(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// inspect summarizes the score in a file
func inspect(path string) (string, error) {
	var score *converter.Score
	var err error
	if converter.DetectFormat(path) == converter.FormatMIDI {
		score, err = converter.NewMIDIConverter(nil).ParseMIDIFile(path)
	} else {
		score, err = converter.ParseScoreFile(path)
	}
	if err != nil {
		return "", err
	}

	var s strings.Builder
	fmt.Fprintf(&s, "Length: %d ticks\n", score.Length())
	for ev := range score.Tempo.All() {
		fmt.Fprintf(&s, "Tempo:  %d bpm at tick %d\n", ev.BPM, ev.TickOffset)
	}
	for i, t := range score.Tracks {
		fmt.Fprintf(&s, "Track %d: %d notes, %d ticks\n", i+1, len(t.Notes()), t.Length())
	}
	return s.String(), nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(banner())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CHOOSE AN ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(descriptionStyle.Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.ToUpper(string(m.item.FromFormat)))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	fmt.Fprintf(&s, "%s %s %s...\n", m.spinner.View(), m.item.Title, filepath.Base(m.selectedFile))
	if m.item.Action == ActionConvert {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.item.FromFormat, m.item.ToFormat)))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.item.Title, m.err.Error())))
	case m.report != "":
		s.WriteString(titleStyle.Render(" " + strings.ToUpper(filepath.Base(m.selectedFile)) + " "))
		s.WriteString("\n\n")
		s.WriteString(m.report)
	default:
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Done!"))
		s.WriteString("\n\n")
		fmt.Fprintf(&s, "Input:  %s\n", filepath.Base(m.selectedFile))
		fmt.Fprintf(&s, "Output: %s", filepath.Base(m.outputFile))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func banner() string {
	logo := `
  ♪ ┌┬┐┌┬┐┬    ┌─┐  ┌┬┐┬┌┬┐┬ ♪
    │││││││    ┌─┘  ││││ │││
    ┴ ┴┴ ┴┴─┘  └─┘  ┴ ┴┴─┴┘┴
`
	return lipgloss.NewStyle().Foreground(goldLeaf).Render(logo)
}

// Run starts the TUI application
func Run(conv *converter.Converter) error {
	p := tea.NewProgram(New(conv), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
