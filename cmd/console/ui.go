package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tutienrpg/turn-engine/pkg/state"
	"github.com/tutienrpg/turn-engine/pkg/world"
)

const (
	AgentName       = "Thiên Đạo"
	PlaceHolderText = "Ngươi làm gì tiếp theo?"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	streamClient *http.Client
	gameState    *state.GameState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// In-flight turn state
	events       chan TurnEvent
	partialStory string
	phase        string
	notice       string

	// World selection state
	showWorldModal bool
	worlds         []*world.Template
	selectedWorld  int
	loadingWorlds  bool

	// Quit confirmation state
	showQuitModal bool
}

type worldsLoadedMsg struct {
	worlds []*world.Template
	err    error
}

type gameStateCreatedMsg struct {
	gameState *state.GameState
	err       error
}

type turnEventMsg struct {
	event TurnEvent
	ok    bool
}

type exportDoneMsg struct {
	path string
	err  error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")). // gold
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("178")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		streamClient: &http.Client{}, // no timeout, turns stream for minutes
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,

		showWorldModal: true,
		loadingWorlds:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showWorldModal {
		return m.loadWorlds()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showWorldModal {
		return m.updateWorldModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeChatContent()
		if m.gameState != nil {
			m.metaViewport.SetContent(writeMetadata(m.gameState))
		}
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.startTurn(input, false)
		}

	case turnEventMsg:
		return m.handleTurnEvent(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("Export failed: " + msg.err.Error())
		} else {
			m.notice = loadingStyle.Render("Transcript saved to " + msg.path)
		}
		m.writeChatContent()
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) startTurn(action string, rewrite bool) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.loading = true
	m.partialStory = ""
	m.phase = ""
	m.err = nil
	m.notice = ""

	if !rewrite {
		m.gameState.History = append(m.gameState.History, state.GameTurn{PlayerAction: action})
	}
	m.writeChatContent()

	events := make(chan TurnEvent)
	m.events = events
	go streamTurn(context.Background(), m.streamClient, m.config.APIBaseURL, m.gameState.ID,
		TurnRequest{Action: action, Rewrite: rewrite}, events)
	return m, waitForTurnEvent(events)
}

func (m ConsoleUI) handleTurnEvent(msg turnEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		// Stream closed
		m.loading = false
		m.events = nil
		m.writeChatContent()
		return m, nil
	}

	switch msg.event.Type {
	case "narrative":
		m.partialStory = msg.event.Narrative
		m.writeChatContent()
	case "phase":
		m.phase = msg.event.Phase
		m.writeChatContent()
	case "error":
		m.loading = false
		m.err = msg.event.Err
		// Drop the provisional turn we appended optimistically
		if n := len(m.gameState.History); n > 0 && m.gameState.History[n-1].StoryText == "" {
			m.gameState.History = m.gameState.History[:n-1]
		}
		m.writeChatContent()
	case "result":
		m.loading = false
		m.partialStory = ""
		m.phase = ""
		m.gameState = msg.event.Response.GameState
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.gameState))
	}
	if m.events != nil {
		return m, waitForTurnEvent(m.events)
	}
	return m, nil
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	cmd := strings.Fields(strings.TrimSpace(input))

	switch strings.ToLower(cmd[0]) {
	case "/help":
		m.notice = titleStyle.Render("Commands:") + `
/rewrite <action> - Replay the last turn with a different action
/copy             - Copy the last narration to the clipboard
/export           - Save the transcript as a PDF
Ctrl+C            - Quit`
		m.writeChatContent()

	case "/rewrite":
		action := strings.TrimSpace(strings.TrimPrefix(input, cmd[0]))
		if action == "" {
			m.notice = errorStyle.Render("Usage: /rewrite <action>")
			m.writeChatContent()
			return m, nil
		}
		if m.loading {
			return m, nil
		}
		return m.startTurn(action, true)

	case "/copy":
		if last := m.gameState.LastTurn(); last != nil {
			if err := clipboard.WriteAll(last.StoryText); err != nil {
				m.notice = errorStyle.Render("Copy failed: " + err.Error())
			} else {
				m.notice = loadingStyle.Render("Narration copied to clipboard")
			}
		}
		m.writeChatContent()

	case "/export":
		return m, m.export()

	default:
		m.notice = errorStyle.Render("Unknown command " + cmd[0])
		m.writeChatContent()
	}
	return m, nil
}

func (m ConsoleUI) export() tea.Cmd {
	return func() tea.Msg {
		data, err := exportTranscript(m.client, m.config.APIBaseURL, m.gameState.ID)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path := m.gameState.ID.String() + ".pdf"
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{path: path}
	}
}

func (m ConsoleUI) loadWorlds() tea.Cmd {
	return func() tea.Msg {
		worlds, err := listWorlds(m.client, m.config.APIBaseURL)
		return worldsLoadedMsg{worlds, err}
	}
}

func (m ConsoleUI) createGameStateFromWorld(worldFile string) tea.Cmd {
	return func() tea.Msg {
		gs, err := createGameState(m.client, m.config.APIBaseURL, worldFile)
		return gameStateCreatedMsg{gs, err}
	}
}

func waitForTurnEvent(events <-chan TurnEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		return turnEventMsg{event, ok}
	}
}

// writeChatContent rebuilds the chat panel from the game state for the
// current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	title := m.gameState.Title
	if title == "" {
		title = m.gameState.World.StoryName
	}
	content.WriteString(titleStyle.Render(strings.ToUpper(title)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, t := range m.gameState.History {
		if t.PlayerAction != "" {
			content.WriteString(userStyle.Render("Ngươi: ") + wordwrap.String(t.PlayerAction, chatWidth-8) + "\n\n")
		}
		if t.StoryText != "" {
			content.WriteString(narratorStyle.Render(AgentName+": ") + wordwrap.String(t.StoryText, chatWidth) + "\n\n")
		}
		if t.StatusNarration != "" {
			content.WriteString(choiceStyle.Render(wordwrap.String(t.StatusNarration, chatWidth)) + "\n\n")
		}
	}

	if last := m.gameState.LastTurn(); !m.loading && last != nil && len(last.Choices) > 0 {
		for i, choice := range last.Choices {
			content.WriteString(choiceStyle.Render(fmt.Sprintf("  %d. %s", i+1, choice)) + "\n")
		}
		content.WriteString("\n")
	}

	if m.loading {
		if m.partialStory != "" {
			content.WriteString(narratorStyle.Render(AgentName+": ") + wordwrap.String(m.partialStory, chatWidth) + "\n\n")
		}
		phase := m.phase
		if phase == "" {
			phase = "..."
		}
		content.WriteString(loadingStyle.Render("▸ " + phase))
		content.WriteString("\n")
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.notice != "" {
		content.WriteString(m.notice + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func writeMetadata(gs *state.GameState) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TRẠNG THÁI") + "\n\n")

	cs := gs.CoreStats
	content.WriteString(fmt.Sprintf("Cảnh giới: tầng %d\n", gs.Cultivation.Level))
	content.WriteString(fmt.Sprintf("Tu vi: %d/%d\n\n", gs.Cultivation.Exp, gs.Cultivation.ExpToNextLevel))

	content.WriteString(fmt.Sprintf("Sinh lực: %.0f/%.0f\n", cs.SinhLuc, cs.SinhLucToiDa))
	content.WriteString(fmt.Sprintf("Linh lực: %.0f/%.0f\n", cs.LinhLuc, cs.LinhLucToiDa))
	content.WriteString(fmt.Sprintf("Thể lực: %.0f/%.0f\n\n", cs.TheLuc, cs.TheLucToiDa))

	content.WriteString(fmt.Sprintf("Ngày %d, %02d:%02d\n", gs.Time.Day, gs.Time.Hour, gs.Time.Minute))
	content.WriteString(gs.Time.Season)
	if gs.Time.Weather != "" {
		content.WriteString(", " + gs.Time.Weather)
	}
	content.WriteString("\n\n")

	if gs.IsInCombat {
		content.WriteString(errorStyle.Render("CHIẾN ĐẤU") + "\n\n")
	}

	if len(gs.PlayerStatOrder) > 0 {
		content.WriteString("Trạng thái:\n")
		for _, name := range gs.PlayerStatOrder {
			content.WriteString("• " + name + "\n")
		}
		content.WriteString("\n")
	}

	if len(gs.Inventory) > 0 {
		content.WriteString("Túi đồ:\n")
		for _, item := range gs.Inventory {
			content.WriteString(fmt.Sprintf("• %s x%d\n", item.Name, item.Quantity))
		}
		content.WriteString("\n")
	}

	content.WriteString(fmt.Sprintf("Lượt: %d\n\n", gs.TurnCount))

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Ctrl+C: Quit\n")
	return content.String()
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case worldsLoadedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.worlds = msg.worlds
		}

	case gameStateCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.gameState = msg.gameState
		m.showWorldModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.gameState))
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingWorlds || m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
		case tea.KeyEnter:
			if len(m.worlds) > 0 {
				m.loading = true
				return m, m.createGameStateFromWorld(m.worlds[m.selectedWorld].FileName)
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

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
				if !m.showWorldModal {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
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
	content.WriteString(modalTitleStyle.Render("Rời khỏi?"))
	content.WriteString("\n\n")
	content.WriteString("Câu chuyện được lưu trên máy chủ; ngươi có thể quay lại sau.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingWorlds:
		content.WriteString(modalTitleStyle.Render("Loading Worlds..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load worlds: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Story..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Khởi tạo thế giới..."))
	default:
		content.WriteString(modalTitleStyle.Render("Chọn Thế Giới"))
		content.WriteString("\n\n")
		for i, w := range m.worlds {
			label := fmt.Sprintf("%s (%s)", w.StoryName, w.PlayerName)
			if i == m.selectedWorld {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showWorldModal {
		return m.renderWorldModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
