package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brilliance/hwachat/internal/models"
)

func TestAppendAndReplace(t *testing.T) {
	c := New()

	c.Append(models.NewUserMessage("first", nil))
	c.Append(models.NewSystemMessage("second"))

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Errorf("arrival order not preserved: %q, %q", msgs[0].Text, msgs[1].Text)
	}

	// Mutating the returned slice must not affect the store.
	msgs[0].Text = "mutated"
	if c.Messages()[0].Text != "first" {
		t.Error("Messages() should return a copy")
	}

	c.ReplaceMessages([]models.DisplayMessage{models.NewSystemMessage("only")})
	if got := c.Messages(); len(got) != 1 || got[0].Text != "only" {
		t.Errorf("ReplaceMessages result = %+v", got)
	}
}

func TestGroupDeduplication(t *testing.T) {
	c := New()

	c.MergeGroups([]models.GroupSummary{
		{ID: "a", Title: "Algebra"},
		{ID: "b", Title: "Biology"},
	}, true)
	// Overlapping page: "b" repeats with a different title; first-seen wins.
	c.MergeGroups([]models.GroupSummary{
		{ID: "b", Title: "Biology (renamed)"},
		{ID: "c", Title: "Chemistry"},
	}, true)

	groups := c.Groups()
	if len(groups) != 3 {
		t.Fatalf("len(Groups()) = %d, want 3", len(groups))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, g := range groups {
		if g.ID != wantOrder[i] {
			t.Errorf("groups[%d].ID = %q, want %q", i, g.ID, wantOrder[i])
		}
	}
	if groups[1].Title != "Biology" {
		t.Errorf("duplicate id should keep first-seen title, got %q", groups[1].Title)
	}

	if !c.HasMoreGroups() {
		t.Error("HasMoreGroups should be true while pages remain")
	}
	c.MergeGroups([]models.GroupSummary{{ID: "d", Title: "Drama"}}, false)
	if c.HasMoreGroups() {
		t.Error("HasMoreGroups should be false after the last page")
	}
}

func TestTypingSignalsOnlyOnChange(t *testing.T) {
	c := New()

	c.SetTyping(true)
	c.SetTyping(true) // no-op
	c.SetTyping(false)

	var got []Update
	for len(c.Updates()) > 0 {
		got = append(got, <-c.Updates())
	}
	if len(got) != 2 {
		t.Errorf("typing updates = %d, want 2", len(got))
	}
	if c.Typing() {
		t.Error("Typing() should be false")
	}
}

func TestConversationTransitions(t *testing.T) {
	c := New()

	c.Append(models.NewUserMessage("old transcript", nil))
	c.StartNew()
	if len(c.Messages()) != 0 {
		t.Error("StartNew should clear the transcript")
	}
	if c.Active().Phase != models.PhasePendingNew {
		t.Errorf("phase = %s, want pending-new", c.Active().Phase)
	}

	if err := c.BeginCreating(); err != nil {
		t.Fatalf("BeginCreating: %v", err)
	}
	if err := c.AdoptGroup("g-42"); err != nil {
		t.Fatalf("AdoptGroup: %v", err)
	}
	active := c.Active()
	if active.Phase != models.PhaseActive || active.GroupID != "g-42" {
		t.Errorf("active = %+v", active)
	}

	// Adopt out of phase is rejected.
	if err := c.AdoptGroup("g-43"); err == nil {
		t.Error("AdoptGroup while active should fail")
	}

	c.SetTyping(true)
	if err := c.SelectGroup("g-7"); err != nil {
		t.Fatalf("SelectGroup: %v", err)
	}
	if c.Typing() {
		t.Error("SelectGroup should clear typing")
	}
	if len(c.Messages()) != 0 {
		t.Error("SelectGroup should clear the transcript")
	}
}

func TestPendingAttachment(t *testing.T) {
	c := New()

	if c.TakePendingAttachment() != nil {
		t.Error("empty store should have no pending attachment")
	}

	att := &models.Attachment{URL: "https://cdn.example/x.png", Kind: models.KindImage}
	c.SetPendingAttachment(att)
	if got := c.PendingAttachment(); got != att {
		t.Error("PendingAttachment should return the stored attachment")
	}

	if got := c.TakePendingAttachment(); got != att {
		t.Error("TakePendingAttachment should return the stored attachment")
	}
	if c.PendingAttachment() != nil {
		t.Error("attachment should be cleared after take")
	}
}

func TestExportMarkdown(t *testing.T) {
	c := New()
	c.Append(models.DisplayMessage{
		Role:   models.RoleUser,
		Text:   "Explain osmosis",
		SentAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Attachment: &models.Attachment{
			URL:  "https://cdn.example/diagram.png",
			Kind: models.KindImage,
		},
	})
	c.Append(models.DisplayMessage{
		Role:   models.RoleAssistant,
		Text:   "Osmosis is the movement of water...",
		SentAt: time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC),
	})

	path := filepath.Join(t.TempDir(), "transcript.md")
	if err := c.ExportMarkdown(path); err != nil {
		t.Fatalf("ExportMarkdown: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	out := string(data)
	for _, want := range []string{"## You", "## Assistant", "Explain osmosis", "[image attachment](https://cdn.example/diagram.png)"} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}
