package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brilliance/hwachat/internal/api"
	"github.com/brilliance/hwachat/internal/config"
	"github.com/brilliance/hwachat/internal/models"
	"github.com/brilliance/hwachat/internal/socket"
	"github.com/brilliance/hwachat/internal/store"
)

type fakeSender struct {
	sent          []string
	historyGroups []string
	newSessions   []string
	sendErr       error
}

func (f *fakeSender) SendText(text string) error {
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeSender) RequestHistory(groupID string) error {
	f.historyGroups = append(f.historyGroups, groupID)
	return nil
}

func (f *fakeSender) RequestHistoryForNewSession(curriculum string) error {
	f.newSessions = append(f.newSessions, curriculum)
	return nil
}

type fakeChannel struct {
	connected bool
}

func (f *fakeChannel) Connected() bool { return f.connected }

func (f *fakeChannel) Subscribe(socket.StateListener) func() { return func() {} }

type fakeLister struct {
	pages   [][]models.GroupSummary
	calls   int
	hasMore bool
	resets  int
}

func (f *fakeLister) FetchPage() ([]models.GroupSummary, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func (f *fakeLister) HasMore() bool { return f.hasMore }
func (f *fakeLister) Reset()        { f.resets++; f.calls = 0 }

type fakeUploader struct {
	remote *api.RemoteFile
	err    error
	paths  []string
	kinds  []models.AttachmentKind
}

func (f *fakeUploader) UploadFile(path string, kind models.AttachmentKind) (*api.RemoteFile, error) {
	f.paths = append(f.paths, path)
	f.kinds = append(f.kinds, kind)
	return f.remote, f.err
}

func newTestModel() (Model, *fakeSender, *fakeLister, *fakeUploader, *store.Conversation) {
	conv := store.New()
	sender := &fakeSender{}
	lister := &fakeLister{}
	uploader := &fakeUploader{}
	m := NewModel(Deps{
		Conversation: conv,
		Dispatcher:   sender,
		Channel:      &fakeChannel{connected: true},
		Groups:       lister,
		Uploader:     uploader,
		Config:       config.DefaultConfig(),
	})
	m.layout()
	return m, sender, lister, uploader, conv
}

// runCmd executes a command synchronously and returns its message.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func pressKey(m Model, key string) (Model, tea.Cmd) {
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return model.(Model), cmd
}

func pressEnter(m Model) (Model, tea.Cmd) {
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return model.(Model), cmd
}

func TestEnterSendsComposerText(t *testing.T) {
	m, sender, _, _, _ := newTestModel()
	m.textarea.SetValue("Explain Newton's second law")

	m, cmd := pressEnter(m)

	msg := runCmd(t, cmd)
	done, ok := msg.(sendDoneMsg)
	if !ok {
		t.Fatalf("msg = %T, want sendDoneMsg", msg)
	}
	if done.err != nil {
		t.Errorf("send error = %v", done.err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "Explain Newton's second law" {
		t.Errorf("sent = %v", sender.sent)
	}
	if m.textarea.Value() != "" {
		t.Error("composer should reset after send")
	}
}

func TestSlashImageRunsUploadThenCannedSend(t *testing.T) {
	m, sender, _, uploader, conv := newTestModel()
	uploader.remote = &api.RemoteFile{URL: "https://cdn.example/x.png", Kind: models.KindImage}
	m.textarea.SetValue("/image ./homework.png")

	m, cmd := pressEnter(m)
	if !m.uploading {
		t.Fatal("uploading flag not set")
	}

	// The batch contains the upload command; find its message.
	var uploadMsg uploadDoneMsg
	found := false
	for _, msg := range drainBatch(t, cmd) {
		if um, ok := msg.(uploadDoneMsg); ok {
			uploadMsg = um
			found = true
		}
	}
	if !found {
		t.Fatal("no uploadDoneMsg produced")
	}
	if len(uploader.paths) != 1 || uploader.paths[0] != "./homework.png" {
		t.Fatalf("upload paths = %v", uploader.paths)
	}
	if uploader.kinds[0] != models.KindImage {
		t.Errorf("kind = %v, want image", uploader.kinds[0])
	}

	// Completing the upload stores the pending attachment and sends the
	// canned prompt.
	model, cmd := m.Update(uploadMsg)
	m = model.(Model)
	if m.uploading {
		t.Error("uploading flag should clear")
	}
	att := conv.PendingAttachment()
	if att == nil || att.URL != "https://cdn.example/x.png" {
		t.Fatalf("pending attachment = %+v", att)
	}
	for _, msg := range drainBatch(t, cmd) {
		if _, ok := msg.(sendDoneMsg); ok {
			break
		}
	}
	if len(sender.sent) != 1 || sender.sent[0] != imagePrompt {
		t.Errorf("sent = %v, want canned image prompt", sender.sent)
	}
}

func TestSlashPdfUsesDocumentKind(t *testing.T) {
	m, _, _, uploader, _ := newTestModel()
	uploader.err = errors.New("boom")
	m.textarea.SetValue("/pdf notes.pdf")

	m, cmd := pressEnter(m)

	for _, msg := range drainBatch(t, cmd) {
		if um, ok := msg.(uploadDoneMsg); ok {
			if um.kind != models.KindDocument {
				t.Errorf("kind = %v, want document", um.kind)
			}
			model, _ := m.Update(um)
			m = model.(Model)
		}
	}
	if m.err == nil {
		t.Error("upload failure should surface as the model error")
	}
	if m.uploading {
		t.Error("uploading flag should clear on failure")
	}
}

func TestSidebarSelectRequestsHistory(t *testing.T) {
	m, sender, _, _, conv := newTestModel()
	conv.MergeGroups([]models.GroupSummary{
		{ID: "g1", Title: "Osmosis"},
		{ID: "g2", Title: "Forces"},
	}, false)
	m.focused = paneSidebar

	m, _ = pressKey(m, "j")
	m, cmd := pressEnter(m)

	runCmd(t, cmd)
	if len(sender.historyGroups) != 1 || sender.historyGroups[0] != "g2" {
		t.Fatalf("history requests = %v, want [g2]", sender.historyGroups)
	}
	active := conv.Active()
	if active.Phase != models.PhaseActive || active.GroupID != "g2" {
		t.Errorf("active = %+v", active)
	}
	if m.focused != paneChat {
		t.Error("selection should focus the chat pane")
	}
}

func TestSidebarNewConversation(t *testing.T) {
	m, sender, _, _, conv := newTestModel()
	m.focused = paneSidebar

	m, cmd := pressKey(m, "n")

	runCmd(t, cmd)
	if len(sender.newSessions) != 1 || sender.newSessions[0] != "Biology" {
		t.Fatalf("new sessions = %v, want default curriculum", sender.newSessions)
	}
	if conv.Active().Phase != models.PhasePendingNew {
		t.Errorf("phase = %v, want pending-new", conv.Active().Phase)
	}
	if m.focused != paneChat {
		t.Error("new conversation should focus the chat pane")
	}
}

func TestSidebarMoreGroups(t *testing.T) {
	m, _, lister, _, conv := newTestModel()
	lister.pages = [][]models.GroupSummary{{{ID: "g9", Title: "Waves"}}}
	lister.hasMore = false
	conv.MergeGroups([]models.GroupSummary{{ID: "g1", Title: "A"}}, true)
	m.focused = paneSidebar

	m, cmd := pressKey(m, "m")

	msg := runCmd(t, cmd)
	loaded, ok := msg.(groupsLoadedMsg)
	if !ok {
		t.Fatalf("msg = %T, want groupsLoadedMsg", msg)
	}
	model, _ := m.Update(loaded)
	m = model.(Model)

	groups := conv.Groups()
	if len(groups) != 2 || groups[1].ID != "g9" {
		t.Fatalf("groups = %v", groups)
	}
	if conv.HasMoreGroups() {
		t.Error("HasMoreGroups should be false after the last page")
	}
}

func TestGroupsRefreshResetsLister(t *testing.T) {
	m, _, lister, _, _ := newTestModel()
	lister.pages = [][]models.GroupSummary{{{ID: "g1", Title: "A"}}}

	model, cmd := m.Update(GroupsRefreshMsg{})
	m = model.(Model)

	if lister.resets != 1 {
		t.Fatalf("resets = %d, want 1", lister.resets)
	}
	if _, ok := runCmd(t, cmd).(groupsLoadedMsg); !ok {
		t.Error("refresh should trigger a fetch")
	}
}

func TestTabSwitchesPane(t *testing.T) {
	m, _, _, _, _ := newTestModel()

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(Model)
	if m.focused != paneSidebar {
		t.Fatalf("focused = %v, want sidebar", m.focused)
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(Model)
	if m.focused != paneChat {
		t.Fatalf("focused = %v, want chat", m.focused)
	}
}

// drainBatch executes a command, flattening one level of tea.Batch.
func drainBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			if c == nil {
				continue
			}
			out = append(out, c())
		}
		return out
	}
	return []tea.Msg{msg}
}
