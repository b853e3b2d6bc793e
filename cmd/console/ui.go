package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/npc-engine/internal/worker"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/event"
	"github.com/jwebster45206/npc-engine/pkg/npc"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

const (
	PlaceHolderText = "Type /help for commands..."
	maxLogLines     = 500
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	world     *world.Registry
	processor *worker.CommandProcessor
	interval  time.Duration
	seed      uint64

	agentViewport viewport.Model
	logViewport   viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int

	paused bool
	ticks  int
	log    []string

	// Quit confirmation state
	showQuitModal bool
}

type tickMsg time.Time

var (
	mainPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	movingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	travelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(w *world.Registry, interval time.Duration, seed uint64, log *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 10)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		world:         w,
		processor:     worker.NewCommandProcessor(w, log),
		interval:      interval,
		seed:          seed,
		textarea:      ta,
		agentViewport: viewport.New(50, 10),
		logViewport:   logVp,
		metaViewport:  viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.tick())
}

func (m ConsoleUI) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case tickMsg:
		if !m.paused {
			m.step()
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			cmd := m.execute(input)
			return m, cmd
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// step advances the world one tick and logs what happened.
func (m *ConsoleUI) step() {
	m.world.UpdateAll(m.interval.Seconds())
	m.ticks++
	m.record(m.world.DrainEvents())
	m.refresh()
}

// execute runs one input line. The returned command is non-nil only to quit.
func (m *ConsoleUI) execute(input string) tea.Cmd {
	c, err := parseCommand(m.world.ID(), input)
	if err != nil {
		m.appendLog(errorStyle.Render(err.Error()))
		m.refresh()
		return nil
	}

	switch c.action {
	case actionHelp:
		m.appendLog(helpText)
	case actionPause:
		m.paused = !m.paused
	case actionStep:
		m.step()
	case actionTime:
		m.world.Clock().SetMinute(c.minute)
		m.appendLog(fmt.Sprintf("Clock set to %s", clock.Format(c.minute)))
	case actionCopy:
		data, err := json.MarshalIndent(m.world.Snapshot(), "", "  ")
		if err == nil {
			err = clipboard.WriteAll(string(data))
		}
		if err != nil {
			m.appendLog(errorStyle.Render("Copy failed: " + err.Error()))
		} else {
			m.appendLog(fmt.Sprintf("Copied snapshot (%d bytes)", len(data)))
		}
	case actionQuit:
		return tea.Quit
	}

	if c.cmd != nil {
		if err := m.processor.Apply(c.cmd); err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
		} else {
			m.appendLog(promptStyle.Render("> " + input))
		}
		m.record(m.world.DrainEvents())
	}
	m.refresh()
	return nil
}

func (m *ConsoleUI) record(evs []event.Event) {
	for _, e := range evs {
		m.appendLog(formatEvent(e))
	}
}

func (m *ConsoleUI) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func formatEvent(e event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", clock.Format(e.Minute), e.Type)
	if e.AgentID != "" {
		b.WriteString(" " + e.AgentID)
	}
	if e.Scene != "" {
		b.WriteString(" @ " + e.Scene)
	}
	for _, k := range []string{"from", "to", "time", "action", "reason", "target_scene"} {
		if v, ok := e.Data[k]; ok {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}
	return b.String()
}

func (m *ConsoleUI) resize() {
	mainWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - mainWidth - 6
	agentHeight := (m.height - 6) / 2

	m.agentViewport.Width = mainWidth - 2
	m.agentViewport.Height = agentHeight
	m.logViewport.Width = mainWidth - 2
	m.logViewport.Height = m.height - agentHeight - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 2
	m.textarea.SetWidth(mainWidth - 4)
}

// refresh redraws every panel from the world.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	m.agentViewport.SetContent(writeAgents(m.world.Agents(), m.agentViewport.Width))

	atBottom := m.logViewport.AtBottom()
	var lines strings.Builder
	for _, l := range m.log {
		lines.WriteString(wordwrap.String(l, m.logViewport.Width) + "\n")
	}
	m.logViewport.SetContent(lines.String())
	if atBottom {
		m.logViewport.GotoBottom()
	}

	m.metaViewport.SetContent(m.writeMetadata())
}

func writeAgents(agents []*npc.Agent, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("AGENTS") + "\n\n")
	if len(agents) == 0 {
		content.WriteString("No agents.\n")
		return content.String()
	}
	header := fmt.Sprintf("%-12s %-14s %-10s %-8s %-13s %-6s %s", "ID", "SCENE", "STATE", "FSM", "FEET", "DIR", "PLAN")
	content.WriteString(headerStyle.Render(truncate.String(header, uint(max(width, 0)))) + "\n")

	for _, a := range agents {
		s := a.Status()
		line := fmt.Sprintf("%-12s %-14s %-10s %-8s %-13s %-6s %s",
			s.ID, s.Scene, s.State, s.Behavior,
			fmt.Sprintf("%4.0f,%4.0f", s.Feet.X, s.Feet.Y),
			s.Direction, describePlan(s))
		line = truncate.StringWithTail(line, uint(max(width, 0)), "…")
		switch {
		case s.TargetScene != "" && s.SceneStep < len(s.ScenePath):
			line = travelStyle.Render(line)
		case len(s.Path) > 0:
			line = movingStyle.Render(line)
		}
		content.WriteString(line + "\n")
	}
	return content.String()
}

// describePlan summarises where an agent is going and why.
func describePlan(s npc.Status) string {
	var parts []string
	if s.TargetScene != "" && s.SceneStep < len(s.ScenePath) {
		parts = append(parts, fmt.Sprintf("→ %s (%d/%d)", s.TargetScene, s.SceneStep+1, len(s.ScenePath)))
	}
	if n := len(s.Path); n > 0 {
		last := s.Path[n-1]
		parts = append(parts, fmt.Sprintf("path %d to %.0f,%.0f", n, last.X, last.Y))
	}
	if s.Schedule != "" {
		parts = append(parts, "sched "+s.Schedule)
	}
	return strings.Join(parts, " | ")
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD") + "\n\n")

	content.WriteString("Time:\n")
	content.WriteString(m.world.Clock().String())
	if m.paused {
		content.WriteString(" " + pausedStyle.Render("PAUSED"))
	}
	content.WriteString(fmt.Sprintf("\ntick %d\n\n", m.ticks))

	content.WriteString("World ID:\n")
	content.WriteString(m.world.ID().String()[:8] + "...\n\n")
	content.WriteString(fmt.Sprintf("Seed:\n%d\n\n", m.seed))

	content.WriteString("Scenes:\n")
	active := m.world.ActiveScene()
	for _, scene := range m.world.Scenes() {
		marker := "  "
		switch {
		case scene == active:
			marker = "▶ "
		case m.world.Resident(scene):
			marker = "• "
		}
		content.WriteString(fmt.Sprintf("%s%s (%d)\n", marker, scenario.DisplayName(scene), len(m.world.AgentsInScene(scene))))
	}

	if props := m.world.Props(); len(props) > 0 {
		content.WriteString("\nProps:\n")
		for _, p := range props {
			state := "placed"
			if p.PickedUp {
				state = "carried"
			}
			content.WriteString(fmt.Sprintf("• %s @ %s (%s)\n", p.ID, p.Scene, state))
		}
	}

	content.WriteString("\nCommands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /pause: Pause\n")

	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tickMsg:
		// Keep the tick chain alive; the world stays frozen behind the modal.
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("The world is not saved by the console.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	mainWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - mainWidth - 6

	mainPanel := mainPanelStyle.Width(mainWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.agentViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(mainWidth-4, 0))),
			m.logViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(mainWidth-4, 0))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, metaPanel)
}
