package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brilliance/hwachat/internal/api"
	"github.com/brilliance/hwachat/internal/config"
	hwaerrors "github.com/brilliance/hwachat/internal/errors"
	"github.com/brilliance/hwachat/internal/models"
	"github.com/brilliance/hwachat/internal/render"
	"github.com/brilliance/hwachat/internal/socket"
	"github.com/brilliance/hwachat/internal/store"
)

const sidebarWidth = 30

// Canned prompts sent along with a freshly uploaded attachment.
const (
	imagePrompt    = "I need help understanding this image"
	documentPrompt = "I need help understanding this document"
)

type pane int

const (
	paneSidebar pane = iota
	paneChat
)

// Messages

type (
	// GroupsRefreshMsg asks the sidebar to reload from page one. Sent
	// from outside the program when the server mints a new group.
	GroupsRefreshMsg struct{}

	storeUpdateMsg struct {
		update store.Update
	}
	connStateMsg struct {
		connected bool
	}
	groupsLoadedMsg struct {
		added   []models.GroupSummary
		hasMore bool
		err     error
	}
	uploadDoneMsg struct {
		remote *api.RemoteFile
		kind   models.AttachmentKind
		err    error
	}
	sendDoneMsg struct {
		err error
	}
	animationTickMsg time.Time
)

// Sender is the outbound half of the dispatcher the TUI drives.
type Sender interface {
	SendText(text string) error
	RequestHistory(groupID string) error
	RequestHistoryForNewSession(curriculum string) error
}

// Channel is the slice of the connection manager the TUI observes.
type Channel interface {
	Connected() bool
	Subscribe(socket.StateListener) (unsubscribe func())
}

// GroupLister pages through conversation-group summaries.
type GroupLister interface {
	FetchPage() ([]models.GroupSummary, error)
	HasMore() bool
	Reset()
}

// FileUploader validates and uploads attachments.
type FileUploader interface {
	UploadFile(path string, kind models.AttachmentKind) (*api.RemoteFile, error)
}

// Deps wires the chat model to its collaborators.
type Deps struct {
	Conversation *store.Conversation
	Dispatcher   Sender
	Channel      Channel
	Groups       GroupLister
	Uploader     FileUploader
	Reconnect    func() error
	Config       config.Config
}

// Model is the two-pane chat UI: conversation groups on the left, the
// active transcript and composer on the right.
type Model struct {
	conv       *store.Conversation
	dispatcher Sender
	channel    Channel
	groups     GroupLister
	uploader   FileUploader
	reconnect  func() error
	cfg        config.Config

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	focused   pane
	cursor    int
	connected bool
	uploading bool
	ready     bool
	frame     int

	notice string
	err    error

	width  int
	height int

	connEvents  chan bool
	unsubscribe func()
}

// NewModel creates the chat model. The caller owns program startup.
func NewModel(deps Deps) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question, or /image <path>, /pdf <path>..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		conv:       deps.Conversation,
		dispatcher: deps.Dispatcher,
		channel:    deps.Channel,
		groups:     deps.Groups,
		uploader:   deps.Uploader,
		reconnect:  deps.Reconnect,
		cfg:        deps.Config,
		textarea:   ta,
		spinner:    s,
		focused:    paneChat,
		connEvents: make(chan bool, 16),
	}

	if deps.Channel != nil {
		m.connected = deps.Channel.Connected()
		events := m.connEvents
		m.unsubscribe = deps.Channel.Subscribe(func(connected bool) {
			select {
			case events <- connected:
			default:
			}
		})
	}

	return m
}

// Init starts the store and connection listeners and loads the sidebar.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForStore(m.conv.Updates()),
		waitForConn(m.connEvents),
		m.loadGroups(),
	)
}

// waitForStore blocks until the conversation store signals a change.
func waitForStore(ch <-chan store.Update) tea.Cmd {
	return func() tea.Msg {
		return storeUpdateMsg{update: <-ch}
	}
}

// waitForConn blocks until the connection state flips.
func waitForConn(ch <-chan bool) tea.Cmd {
	return func() tea.Msg {
		return connStateMsg{connected: <-ch}
	}
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

func (m Model) loadGroups() tea.Cmd {
	lister := m.groups
	return func() tea.Msg {
		added, err := lister.FetchPage()
		return groupsLoadedMsg{added: added, hasMore: lister.HasMore(), err: err}
	}
}

func (m Model) sendText(text string) tea.Cmd {
	d := m.dispatcher
	return func() tea.Msg {
		return sendDoneMsg{err: d.SendText(text)}
	}
}

func (m Model) uploadFile(path string, kind models.AttachmentKind) tea.Cmd {
	u := m.uploader
	return func() tea.Msg {
		remote, err := u.UploadFile(path, kind)
		return uploadDoneMsg{remote: remote, kind: kind, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		model, cmd, handled := m.handleKey(msg)
		if handled {
			return model, cmd
		}
		m = model

	case storeUpdateMsg:
		switch msg.update {
		case store.UpdateMessages, store.UpdateConversation:
			m.refreshTranscript()
			m.viewport.GotoBottom()
			if m.cfg.CopyToClipboard {
				if text, ok := m.lastAssistantText(); ok {
					_ = clipboard.WriteAll(text)
				}
			}
		case store.UpdateTyping:
			if m.conv.Typing() {
				cmds = append(cmds, animationTick())
			}
		case store.UpdateGroups:
			groups := m.conv.Groups()
			if m.cursor >= len(groups) && len(groups) > 0 {
				m.cursor = len(groups) - 1
			}
		}
		cmds = append(cmds, waitForStore(m.conv.Updates()))

	case connStateMsg:
		m.connected = msg.connected
		cmds = append(cmds, waitForConn(m.connEvents))

	case groupsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.conv.MergeGroups(msg.added, msg.hasMore)
		}

	case GroupsRefreshMsg:
		m.groups.Reset()
		cmds = append(cmds, m.loadGroups())

	case uploadDoneMsg:
		m.uploading = false
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.err = nil
		m.conv.SetPendingAttachment(&models.Attachment{URL: msg.remote.URL, Kind: msg.remote.Kind})
		prompt := imagePrompt
		if msg.kind == models.KindDocument {
			prompt = documentPrompt
		}
		cmds = append(cmds, m.sendText(prompt))

	case sendDoneMsg:
		// A send while disconnected already placed a notice in the
		// transcript; anything else is worth surfacing.
		if msg.err != nil && !errors.Is(msg.err, hwaerrors.ErrNotConnected) {
			m.err = msg.err
		}

	case spinner.TickMsg:
		if m.uploading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.conv.Typing() {
			m.frame++
			cmds = append(cmds, animationTick())
		}
	}

	if m.focused == paneChat && !m.uploading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey routes key presses. handled=false means the key should also
// flow to the child components.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit, true

	case "tab":
		if m.focused == paneSidebar {
			m.focused = paneChat
			m.textarea.Focus()
		} else {
			m.focused = paneSidebar
			m.textarea.Blur()
		}
		return m, nil, true

	case "ctrl+r":
		if !m.connected && m.reconnect != nil {
			fn := m.reconnect
			return m, func() tea.Msg {
				if err := fn(); err != nil {
					return sendDoneMsg{err: err}
				}
				return nil
			}, true
		}
		return m, nil, true

	case "ctrl+y":
		if text, ok := m.lastAssistantText(); ok {
			if err := clipboard.WriteAll(text); err != nil {
				m.notice = fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)
			} else {
				m.notice = "✓ Copied last answer to clipboard"
			}
		}
		return m, nil, true

	case "ctrl+e":
		path := filepath.Join(".", fmt.Sprintf("hwachat-%s.md", time.Now().Format("20060102-150405")))
		if err := m.conv.ExportMarkdown(path); err != nil {
			m.err = err
		} else {
			m.notice = "✓ Transcript saved to " + path
		}
		return m, nil, true
	}

	if m.focused == paneSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	groups := m.conv.Groups()

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil, true

	case "down", "j":
		if m.cursor < len(groups)-1 {
			m.cursor++
		}
		return m, nil, true

	case "enter", "l", "right":
		if m.cursor < len(groups) {
			group := groups[m.cursor]
			if err := m.conv.SelectGroup(group.ID); err != nil {
				m.err = err
				return m, nil, true
			}
			m.focused = paneChat
			m.textarea.Focus()
			d := m.dispatcher
			return m, func() tea.Msg {
				return sendDoneMsg{err: d.RequestHistory(group.ID)}
			}, true
		}
		return m, nil, true

	case "n":
		m.conv.StartNew()
		m.focused = paneChat
		m.textarea.Focus()
		d := m.dispatcher
		curriculum := m.cfg.Curriculum
		return m, func() tea.Msg {
			return sendDoneMsg{err: d.RequestHistoryForNewSession(curriculum)}
		}, true

	case "m":
		if m.conv.HasMoreGroups() {
			return m, m.loadGroups(), true
		}
		return m, nil, true

	case "q", "esc":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit, true
	}

	return m, nil, true
}

func (m Model) handleChatKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		m.focused = paneSidebar
		m.textarea.Blur()
		return m, nil, true

	case "enter":
		input := strings.TrimSpace(m.textarea.Value())
		if input == "" || m.uploading {
			return m, nil, true
		}
		if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
			if m.unsubscribe != nil {
				m.unsubscribe()
			}
			return m, tea.Quit, true
		}

		m.textarea.Reset()
		m.notice = ""

		if path, ok := strings.CutPrefix(input, "/image "); ok {
			m.uploading = true
			return m, tea.Batch(m.uploadFile(strings.TrimSpace(path), models.KindImage), m.spinner.Tick), true
		}
		if path, ok := strings.CutPrefix(input, "/pdf "); ok {
			m.uploading = true
			return m, tea.Batch(m.uploadFile(strings.TrimSpace(path), models.KindDocument), m.spinner.Tick), true
		}

		return m, m.sendText(input), true
	}

	return m, nil, false
}

// lastAssistantText returns the most recent assistant answer.
func (m Model) lastAssistantText() (string, bool) {
	msgs := m.conv.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant {
			return msgs[i].Text, true
		}
	}
	return "", false
}

// layout recomputes component sizes after a resize.
func (m *Model) layout() {
	chatWidth := m.width - sidebarWidth - 6
	if chatWidth < 20 {
		chatWidth = 20
	}
	vpHeight := m.height - 9
	if vpHeight < 5 {
		vpHeight = 5
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(chatWidth - 2)
	m.refreshTranscript()
}

// refreshTranscript rebuilds the viewport content from the store.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.conv.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		switch msg.Role {
		case models.RoleUser:
			label := userLabelStyle.Render("⬤ You")
			content.WriteString(label + "\n")
			if msg.Attachment != nil {
				chip := attachmentChipStyle.Render(fmt.Sprintf("📎 %s: %s", msg.Attachment.Kind, msg.Attachment.URL))
				content.WriteString(chip + "\n")
			}
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Text))

		case models.RoleAssistant:
			label := assistantLabelStyle.Render("✦ Assistant")
			rendered, err := render.Markdown(msg.Text, m.markdownOptions(bubbleWidth-4))
			if err != nil {
				rendered = msg.Text
			}
			rendered = strings.TrimRight(rendered, "\n")
			content.WriteString(label + "\n")
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

		case models.RoleSystem:
			content.WriteString(systemMessageStyle.Render("· " + msg.Text))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m Model) markdownOptions(width int) render.Options {
	return render.DefaultOptions().
		WithWidth(width).
		WithStyle(m.cfg.Markdown.Style).
		WithEmoji(m.cfg.Markdown.EnableEmoji).
		WithPreserveNewLines(m.cfg.Markdown.PreserveNewLines)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.sidebarView(),
		m.chatView(),
	)

	sections := []string{main, m.statusBar()}

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) sidebarView() string {
	var s strings.Builder

	s.WriteString(sidebarTitleStyle.Render("Conversations"))
	s.WriteString("\n\n")

	groups := m.conv.Groups()
	if len(groups) == 0 {
		s.WriteString(hintStyle.Render("No conversations yet.\n'n' starts a new one."))
	} else {
		for i, g := range groups {
			title := g.Title
			if title == "" {
				title = g.ID
			}
			if len(title) > sidebarWidth-4 {
				title = title[:sidebarWidth-7] + "..."
			}
			line := "💬 " + title
			if i == m.cursor && m.focused == paneSidebar {
				s.WriteString(selectedGroupStyle.Render("▸ "+line) + "\n")
			} else {
				s.WriteString(groupStyle.Render("  "+line) + "\n")
			}
		}
	}

	if m.conv.HasMoreGroups() {
		s.WriteString("\n" + hintStyle.Render("'m' loads more"))
	}

	style := sidebarStyle.Width(sidebarWidth)
	if m.focused == paneSidebar {
		style = style.BorderForeground(colorPrimary)
	}
	return style.Height(m.height - 4).Render(s.String())
}

func (m Model) chatView() string {
	var sections []string

	sections = append(sections, m.chatHeader())
	sections = append(sections, m.viewport.View())

	if m.conv.Typing() {
		dots := strings.Repeat(".", m.frame%4)
		sections = append(sections, typingStyle.Render("✦ Assistant is typing"+dots))
	}

	if att := m.conv.PendingAttachment(); att != nil {
		sections = append(sections, attachmentChipStyle.Render(fmt.Sprintf("📎 pending %s: %s", att.Kind, att.URL)))
	}

	var input string
	if m.uploading {
		input = m.spinner.View() + loadingStyle.Render(" Uploading...")
	} else {
		input = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(m.viewport.Width).Render(input))

	style := chatPaneStyle
	if m.focused == paneChat {
		style = style.BorderForeground(colorPrimary)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) chatHeader() string {
	title := headerTitleStyle.Render("✦ Homework Assistant")

	var badge string
	switch {
	case m.connected:
		badge = connectedBadgeStyle.Render("● connected")
	case m.channel != nil:
		badge = reconnectBadgeStyle.Render("⟳ reconnecting...")
	default:
		badge = offlineBadgeStyle.Render("○ offline")
	}

	subject := hintStyle.Render(fmt.Sprintf("%s · %s", m.cfg.Curriculum, m.cfg.ClassLevel))

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", subject, "  ", badge)
}

func (m Model) statusBar() string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Switch pane"},
		{"ctrl+y", "Copy answer"},
		{"ctrl+e", "Export"},
		{"ctrl+c", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Render(strings.Join(items, "  │  "))
}

// Run starts the chat TUI and blocks until it exits. The returned
// program handle is delivered through onStart before Run blocks, so the
// caller can push messages (e.g. GroupsRefreshMsg) into the UI.
func Run(deps Deps, onStart func(*tea.Program)) error {
	m := NewModel(deps)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if onStart != nil {
		onStart(p)
	}

	_, err := p.Run()
	return err
}
