// Package store holds the client-side conversation state: the
// transcript of display messages, the typing flag, the de-duplicated
// conversation-group summaries, and the active-conversation lifecycle.
//
// All mutation goes through one Conversation value guarded by a mutex;
// readers get copies. Consumers watch the Updates channel to re-render.
package store

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brilliance/hwachat/internal/models"
)

// Update identifies what changed, so the UI can re-render selectively.
type Update int

const (
	UpdateMessages Update = iota
	UpdateTyping
	UpdateGroups
	UpdateConversation
)

// Conversation is the store for a single chat surface.
type Conversation struct {
	mu sync.RWMutex

	messages []models.DisplayMessage
	typing   bool

	groups     []models.GroupSummary
	seenGroups map[string]struct{}
	moreGroups bool // pagination signal from the last merged page

	active  models.ActiveConversation
	pending *models.Attachment

	updates chan Update
}

// New creates an empty store.
func New() *Conversation {
	return &Conversation{
		seenGroups: make(map[string]struct{}),
		// Buffered so producers never block on a slow UI; the channel
		// carries change kinds, not state, so dropping is never needed.
		updates: make(chan Update, 64),
	}
}

// Updates is the change-notification channel.
func (c *Conversation) Updates() <-chan Update {
	return c.updates
}

func (c *Conversation) signal(u Update) {
	select {
	case c.updates <- u:
	default:
		// A full channel means the consumer is about to drain a burst;
		// the pending notifications already force a re-read of state.
	}
}

// Append adds one message to the transcript.
func (c *Conversation) Append(msg models.DisplayMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	c.signal(UpdateMessages)
}

// ReplaceMessages swaps the whole transcript, used when history is
// hydrated.
func (c *Conversation) ReplaceMessages(msgs []models.DisplayMessage) {
	c.mu.Lock()
	c.messages = append([]models.DisplayMessage(nil), msgs...)
	c.mu.Unlock()
	c.signal(UpdateMessages)
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []models.DisplayMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.DisplayMessage(nil), c.messages...)
}

// SetTyping flips the assistant-typing flag.
func (c *Conversation) SetTyping(on bool) {
	c.mu.Lock()
	changed := c.typing != on
	c.typing = on
	c.mu.Unlock()
	if changed {
		c.signal(UpdateTyping)
	}
}

// Typing reports the assistant-typing flag.
func (c *Conversation) Typing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.typing
}

// MergeGroups folds a page of summaries into the set, de-duplicating by
// id and preserving first-seen insertion order. hasMore is the
// pagination signal reported alongside the page.
func (c *Conversation) MergeGroups(page []models.GroupSummary, hasMore bool) {
	c.mu.Lock()
	for _, g := range page {
		if _, ok := c.seenGroups[g.ID]; ok {
			continue
		}
		c.seenGroups[g.ID] = struct{}{}
		c.groups = append(c.groups, g)
	}
	c.moreGroups = hasMore
	c.mu.Unlock()
	c.signal(UpdateGroups)
}

// Groups returns a copy of the accumulated summaries.
func (c *Conversation) Groups() []models.GroupSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.GroupSummary(nil), c.groups...)
}

// HasMoreGroups reports whether the server holds more summaries beyond
// what has been accumulated.
func (c *Conversation) HasMoreGroups() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moreGroups
}

// Active returns the current conversation reference.
func (c *Conversation) Active() models.ActiveConversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// StartNew resets to a fresh, not-yet-created conversation and clears
// the transcript.
func (c *Conversation) StartNew() {
	c.mu.Lock()
	c.active.StartNew()
	c.messages = nil
	c.typing = false
	c.mu.Unlock()
	c.signal(UpdateConversation)
	c.signal(UpdateMessages)
}

// BeginCreating marks the first send of a pending conversation.
func (c *Conversation) BeginCreating() error {
	c.mu.Lock()
	err := c.active.BeginCreating()
	c.mu.Unlock()
	if err == nil {
		c.signal(UpdateConversation)
	}
	return err
}

// AdoptGroup installs the server-minted group id after creation.
func (c *Conversation) AdoptGroup(id string) error {
	c.mu.Lock()
	err := c.active.Adopt(id)
	c.mu.Unlock()
	if err == nil {
		c.signal(UpdateConversation)
	}
	return err
}

// SelectGroup switches to an existing conversation and clears the
// transcript pending hydration.
func (c *Conversation) SelectGroup(id string) error {
	c.mu.Lock()
	err := c.active.Select(id)
	if err == nil {
		c.messages = nil
		c.typing = false
	}
	c.mu.Unlock()
	if err == nil {
		c.signal(UpdateConversation)
		c.signal(UpdateMessages)
	}
	return err
}

// SetPendingAttachment stores the at-most-one attachment waiting for
// the next outgoing message, replacing any previous one.
func (c *Conversation) SetPendingAttachment(att *models.Attachment) {
	c.mu.Lock()
	c.pending = att
	c.mu.Unlock()
	c.signal(UpdateConversation)
}

// TakePendingAttachment returns and clears the pending attachment.
func (c *Conversation) TakePendingAttachment() *models.Attachment {
	c.mu.Lock()
	att := c.pending
	c.pending = nil
	c.mu.Unlock()
	return att
}

// PendingAttachment returns the pending attachment without clearing it.
func (c *Conversation) PendingAttachment() *models.Attachment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// ExportMarkdown writes the transcript to path as a markdown document.
func (c *Conversation) ExportMarkdown(path string) error {
	msgs := c.Messages()

	var sb strings.Builder
	sb.WriteString("# Homework Assistant transcript\n\n")
	sb.WriteString(fmt.Sprintf("Exported %s\n\n", time.Now().Format(time.RFC3339)))

	for _, m := range msgs {
		switch m.Role {
		case models.RoleUser:
			sb.WriteString("## You\n\n")
		case models.RoleAssistant:
			sb.WriteString("## Assistant\n\n")
		default:
			sb.WriteString("## System\n\n")
		}
		sb.WriteString(fmt.Sprintf("_%s_\n\n", m.SentAt.Format("2006-01-02 15:04:05")))
		if m.Attachment != nil {
			sb.WriteString(fmt.Sprintf("[%s attachment](%s)\n\n", m.Attachment.Kind, m.Attachment.URL))
		}
		sb.WriteString(m.Text)
		sb.WriteString("\n\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
