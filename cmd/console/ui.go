package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/pkg/battle"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

const confidenceBarWidth = 20

// ConsoleUI is the BubbleTea model that draws the courtroom.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config     *ConsoleConfig
	api        *apiClient
	view       *arena.View
	header     transcript.Header
	entries    []transcript.Entry
	turnKey    string // changes whenever a new statement is delivered
	transcript viewport.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	ready      bool
	width      int
	height     int
	status     string
	err        error

	// Quit confirmation state
	showQuitModal bool
}

type viewMsg struct {
	view *arena.View
	err  error
	poll bool // from the refresh loop rather than a key press
}

type pollMsg struct{}

type transcriptMsg struct {
	header  transcript.Header
	entries []transcript.Entry
	err     error
}

type statusMsg struct {
	text string
	err  error
}

type keyMap struct {
	Play       key.Binding
	Advance    key.Binding
	Restart    key.Binding
	Upload     key.Binding
	Replay     key.Binding
	Faster     key.Binding
	Slower     key.Binding
	Voice      key.Binding
	VoicePause key.Binding
	Copy       key.Binding
	Save       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Upload, k.Play, k.Advance, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Upload, k.Play, k.Advance, k.Restart},
		{k.Faster, k.Slower, k.Replay},
		{k.Voice, k.VoicePause},
		{k.Copy, k.Save, k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Play:       key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "play/pause")),
		Advance:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next turn")),
		Restart:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Upload:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload case")),
		Replay:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "replay voice")),
		Faster:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Voice:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "voice on/off")),
		VoicePause: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pause voice")),
		Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy transcript")),
		Save:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save transcript")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var (
	courtPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	prosecutionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")). // red
				Bold(true)

	defenseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	moderatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // gold
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	objectionBubbleStyle = bubbleStyle.
				BorderForeground(lipgloss.Color("196"))

	characterStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Align(lipgloss.Center)

	activeCharacterStyle = characterStyle.
				BorderForeground(lipgloss.Color("205"))

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

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient) ConsoleUI {
	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(loadingStyle),
	)

	vp := viewport.New(50, 10)
	vp.MouseWheelEnabled = true

	return ConsoleUI{
		config:     cfg,
		api:        api,
		transcript: vp,
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.fetchView(true), m.spinner.Tick)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeTranscript()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case viewMsg:
		var cmds []tea.Cmd
		if msg.poll {
			cmds = append(cmds, m.schedulePoll())
		}
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Batch(cmds...)
		}
		if !msg.poll {
			m.err = nil
		}
		m.view = msg.view
		if k := turnKey(msg.view); k != m.turnKey {
			m.turnKey = k
			cmds = append(cmds, m.fetchTranscript())
		}
		return m, tea.Batch(cmds...)

	case pollMsg:
		return m, m.fetchView(true)

	case transcriptMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.header = msg.header
		m.entries = msg.entries
		m.writeTranscript()

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.text
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.showQuitModal = true
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.Upload):
		return m, m.action(func() (*arena.View, error) { return m.api.upload(m.config.DocumentPath) })
	case key.Matches(msg, m.keys.Play):
		return m, m.togglePlay()
	case key.Matches(msg, m.keys.Advance):
		return m, m.post("advance")
	case key.Matches(msg, m.keys.Restart):
		return m, m.post("restart")
	case key.Matches(msg, m.keys.Replay):
		return m, m.post("replay")
	case key.Matches(msg, m.keys.Faster), key.Matches(msg, m.keys.Slower):
		if m.view == nil {
			return m, nil
		}
		step := 1
		if key.Matches(msg, m.keys.Slower) {
			step = -1
		}
		rate := nextRate(m.view.Playback.Rate, step)
		return m, m.action(func() (*arena.View, error) { return m.api.setRate(rate) })
	case key.Matches(msg, m.keys.Voice):
		if m.view == nil {
			return m, nil
		}
		enabled := !m.view.Narration.Settings.Enabled
		return m, m.action(func() (*arena.View, error) { return m.api.setNarrationEnabled(enabled) })
	case key.Matches(msg, m.keys.VoicePause):
		return m, m.toggleVoicePause()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyTranscript()
	case key.Matches(msg, m.keys.Save):
		return m, m.saveTranscript()
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m ConsoleUI) togglePlay() tea.Cmd {
	if m.view == nil {
		return nil
	}
	switch {
	case m.view.State.Phase == state.PhaseNotStarted:
		return m.post("play")
	case m.view.Playback.Running:
		return m.post("pause")
	default:
		return m.post("resume")
	}
}

// toggleVoicePause pauses the voice while it speaks. The server keeps no
// paused flag in the view, so a second press always tries resume.
func (m ConsoleUI) toggleVoicePause() tea.Cmd {
	if m.view == nil {
		return nil
	}
	if m.view.Narration.State.Speaking {
		return m.post("narration/pause")
	}
	return m.post("narration/resume")
}

func (m *ConsoleUI) resize() {
	courtWidth := m.courtWidth()
	m.transcript.Width = courtWidth - 4
	m.help.Width = m.width

	// header, characters, bubble, separators and help take the rest
	used := 22
	if m.help.ShowAll {
		used += 3
	}
	m.transcript.Height = max(m.height-used, 3)
}

func (m ConsoleUI) courtWidth() int {
	return int(float64(m.width)*0.72) - 2
}

// writeTranscript fills the viewport with delivered statements.
func (m *ConsoleUI) writeTranscript() {
	width := max(m.transcript.Width-2, 10)
	var content strings.Builder
	for _, e := range m.entries {
		name := partyStyle(e.Party).Render(m.header.SpeakerName(e.Party) + ":")
		marker := ""
		if e.IsObjection {
			marker = errorStyle.Render(" [objection]")
		}
		line := fmt.Sprintf("%s %s%s %s",
			promptStyle.Render(e.Timestamp.Local().Format(time.TimeOnly)), name, marker, e.Text)
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	m.transcript.SetContent(content.String())
	m.transcript.GotoBottom()
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready || m.view == nil {
		if m.err != nil {
			return "\n  " + errorStyle.Render("Error: "+m.err.Error())
		}
		return "\n  " + m.spinner.View() + " Connecting to the courtroom..."
	}

	courtWidth := m.courtWidth()
	metaWidth := m.width - courtWidth - 4
	v := m.view

	court := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(courtWidth-4),
		"",
		m.renderCharacters(courtWidth-4),
		"",
		m.renderBubble(courtWidth-4),
		separatorStyle.Render(strings.Repeat("─", max(courtWidth-4, 1))),
		m.transcript.View(),
		m.renderStatus(),
		m.help.View(m.keys),
	)

	courtPanel := courtPanelStyle.Width(courtWidth).Height(m.height - 1).Render(court)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 1).Render(renderMetadata(v))

	return lipgloss.JoinHorizontal(lipgloss.Top, courtPanel, metaPanel)
}

func (m ConsoleUI) renderHeader(width int) string {
	v := m.view
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(v.Title)) + "\n")
	if v.Case != "" {
		b.WriteString(promptStyle.Render(wordwrap.String(v.Case, width)) + "\n")
	}

	round := fmt.Sprintf("Round %d of %d", v.State.Round, v.Rounds)
	switch v.State.Phase {
	case state.PhaseNotStarted:
		round = "Awaiting opening statements"
	case state.PhaseComplete:
		round = "Verdict"
	}
	barWidth := max(width-len(round)-8, 10)
	fmt.Fprintf(&b, "%s  %s %3.0f%%", round, renderBar(v.State.Progress, barWidth), v.State.Progress)
	return b.String()
}

func (m ConsoleUI) renderCharacters(width int) string {
	v := m.view
	cell := max(width/3-2, 16)
	boxes := []string{
		renderCounsel(v.Prosecution, v.State.ActiveParty, cell),
		renderSpeaker(v.Moderator, v.State.ActiveParty, cell, ""),
		renderCounsel(v.Defense, v.State.ActiveParty, cell),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func renderCounsel(c arena.CounselView, active script.Party, width int) string {
	meter := fmt.Sprintf("%s\n%3.0f%% %s",
		renderBar(c.Confidence, min(confidenceBarWidth, width-2)), c.Confidence, c.ConfidenceLabel)
	return renderSpeaker(c.SpeakerView, active, width, meter)
}

func renderSpeaker(s arena.SpeakerView, active script.Party, width int, extra string) string {
	style := characterStyle
	if s.Party == active {
		style = activeCharacterStyle
	}
	lines := []string{
		partyStyle(s.Party).Render(s.Name),
		animationLabel(s.Animation),
	}
	if s.Title != "" {
		lines = slices.Insert(lines, 1, promptStyle.Render(s.Title))
	}
	if extra != "" {
		lines = append(lines, extra)
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

// renderBubble shows the statement being revealed, one character at a time.
func (m ConsoleUI) renderBubble(width int) string {
	v := m.view
	switch {
	case !v.DocumentUploaded && v.State.Phase == state.PhaseNotStarted:
		return loadingStyle.Render("Upload a case document (u) to open the courtroom.")
	case v.State.Phase == state.PhaseNotStarted:
		return promptStyle.Render("Press space to begin the battle.")
	}

	speaker, _ := v.Speaker(v.State.ActiveParty)
	text := v.Revealed
	if v.Stage == battle.StageRevealing {
		text += "▌"
	}
	style := bubbleStyle
	if v.State.CurrentStatement.IsObjection {
		style = objectionBubbleStyle
	}
	name := partyStyle(speaker.Party).Render(speaker.Name)
	return name + "\n" + style.Width(max(width-2, 10)).Render(wordwrap.String(text, max(width-6, 10)))
}

func (m ConsoleUI) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		return loadingStyle.Render(m.status)
	}
	v := m.view
	switch {
	case v.Narration.State.Speaking:
		return m.spinner.View() + " " + promptStyle.Render("Speaking...")
	case v.Stage == battle.StageHolding:
		return m.spinner.View() + " " + promptStyle.Render("Weighing the argument...")
	case v.State.Phase == state.PhaseInProgress && !v.Playback.Running:
		return loadingStyle.Render("Paused")
	case v.State.Phase == state.PhaseComplete:
		return titleStyle.Render(verdictLine(v))
	}
	return ""
}

func verdictLine(v *arena.View) string {
	winner, ok := v.Speaker(v.State.Outcome.Winner())
	if !ok {
		return "The court has ruled."
	}
	return fmt.Sprintf("The court rules for %s (%s).", winner.Name, winner.Party)
}

func renderMetadata(v *arena.View) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("COURT RECORD") + "\n\n")

	content.WriteString("Battle ID:\n")
	if len(v.BattleID) >= 8 {
		content.WriteString(v.BattleID[:8] + "...\n\n")
	} else {
		content.WriteString(v.BattleID + "\n\n")
	}

	content.WriteString("Case document:\n")
	if v.DocumentUploaded {
		content.WriteString("Uploaded\n\n")
	} else {
		content.WriteString(loadingStyle.Render("Missing") + "\n\n")
	}

	content.WriteString("Playback:\n")
	running := "Paused"
	if v.Playback.Running {
		running = "Running"
	}
	fmt.Fprintf(&content, "%s at %gx\n\n", running, v.Playback.Rate)

	content.WriteString("Voice:\n")
	switch {
	case !v.Narration.Supported:
		content.WriteString("Unavailable\n\n")
	case !v.Narration.Settings.Enabled:
		content.WriteString("Off\n\n")
	default:
		fmt.Fprintf(&content, "On, volume %.0f%%, rate %gx\n\n",
			v.Narration.Settings.Volume*100, v.Narration.Settings.Rate)
	}

	for _, side := range []arena.CounselView{v.Prosecution, v.Defense} {
		if len(side.Evidence) == 0 {
			continue
		}
		content.WriteString(partyStyle(side.Party).Render("Exhibits: "+side.Name) + "\n")
		for _, e := range side.Evidence {
			fmt.Fprintf(&content, "• %s (%s, %s)\n", e.Title, e.Type, strings.Repeat("★", e.Strength))
		}
		content.WriteString("\n")
	}

	return content.String()
}

// renderBar draws value (0-100) as a bar of width cells.
func renderBar(value float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(state.Clamp(value) / 100 * float64(width)))
	return strings.Repeat("█", filled) + separatorStyle.Render(strings.Repeat("░", width-filled))
}

// nextRate steps through playback.Rates, stopping at either end.
func nextRate(current float64, step int) float64 {
	i := slices.Index(playback.Rates, current)
	if i < 0 {
		return 1
	}
	i = min(max(i+step, 0), len(playback.Rates)-1)
	return playback.Rates[i]
}

func animationLabel(a state.Animation) string {
	switch a {
	case state.AnimationSpeaking:
		return "speaking"
	case state.AnimationObjecting:
		return errorStyle.Render("OBJECTION!")
	case state.AnimationThinking:
		return promptStyle.Render("thinking...")
	case state.AnimationCelebrating:
		return titleStyle.Render("★ victorious ★")
	default:
		return promptStyle.Render("waiting")
	}
}

func partyStyle(p script.Party) lipgloss.Style {
	switch p {
	case script.PartyProsecution:
		return prosecutionStyle
	case script.PartyDefense:
		return defenseStyle
	case script.PartyModerator:
		return moderatorStyle
	default:
		return promptStyle
	}
}

// turnKey identifies the delivered statement so the transcript is only
// fetched when it changes.
func turnKey(v *arena.View) string {
	return fmt.Sprintf("%s/%s/%d/%d", v.State.Phase, v.State.ActiveParty, v.State.Round, v.State.TurnIndex)
}

func (m ConsoleUI) fetchView(poll bool) tea.Cmd {
	return func() tea.Msg {
		v, err := m.api.getView()
		return viewMsg{view: v, err: err, poll: poll}
	}
}

func (m ConsoleUI) schedulePoll() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m ConsoleUI) post(action string) tea.Cmd {
	return m.action(func() (*arena.View, error) { return m.api.post(action, nil) })
}

func (m ConsoleUI) action(fn func() (*arena.View, error)) tea.Cmd {
	return func() tea.Msg {
		v, err := fn()
		return viewMsg{view: v, err: err}
	}
}

func (m ConsoleUI) fetchTranscript() tea.Cmd {
	return func() tea.Msg {
		h, entries, err := m.api.transcriptEntries()
		return transcriptMsg{header: h, entries: entries, err: err}
	}
}

func (m ConsoleUI) copyTranscript() tea.Cmd {
	return func() tea.Msg {
		body, err := m.api.transcript(transcript.FormatText)
		if err != nil {
			return statusMsg{err: err}
		}
		if err := clipboard.WriteAll(string(body)); err != nil {
			return statusMsg{err: fmt.Errorf("failed to copy transcript: %w", err)}
		}
		return statusMsg{text: "Transcript copied to clipboard"}
	}
}

func (m ConsoleUI) saveTranscript() tea.Cmd {
	battleID := ""
	if m.view != nil {
		battleID = m.view.BattleID
	}
	return func() tea.Msg {
		body, err := m.api.transcript(transcript.FormatMarkdown)
		if err != nil {
			return statusMsg{err: err}
		}
		path := filepath.Join(m.config.ExportDir, exportFilename(battleID))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return statusMsg{err: fmt.Errorf("failed to save transcript: %w", err)}
		}
		return statusMsg{text: "Transcript saved to " + path}
	}
}

func exportFilename(battleID string) string {
	if battleID == "" {
		return "battle-transcript" + transcript.FormatMarkdown.Extension()
	}
	return "battle-" + battleID + transcript.FormatMarkdown.Extension()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyEsc:
			m.showQuitModal = false
			return m, nil
		default:
			switch msg.String() {
			case "y", "Y", "q":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}

	case viewMsg:
		// keep the refresh loop alive behind the modal
		if msg.poll {
			return m, m.schedulePoll()
		}

	case pollMsg:
		return m, m.fetchView(true)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Courtroom?"))
	content.WriteString("\n\n")
	content.WriteString("The battle keeps running on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to stay, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}
