// Package conversation decides which slice of a project's message history
// is worth handing to the decision agent for the next turn. It detects
// topic boundaries, windows history with recency weighting, and optionally
// segments the conversation into topics.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"foreman/internal/config"
	"foreman/internal/store"
)

// defaultSwitchPhrases are explicit correction or topic-switch signals.
// Substring match, case-insensitive. Tunable via config; these are
// heuristics and guarantee nothing.
var defaultSwitchPhrases = []string{
	"new topic",
	"different topic",
	"let's discuss",
	"lets discuss",
	"switching to",
	"switching topics",
	"moving on to",
	"but we weren't discussing",
	"but we werent discussing",
	"we were talking about",
	"not about that",
}

// Bundle is the windowed, weighted view of history for one agent turn.
// Primary and Secondary are separate labeled groups, not just an
// ordering, so a consumer cannot accidentally weight them equally.
type Bundle struct {
	TopicChanged bool
	TopicID      *string // active topic, when segmentation is enabled
	Primary      []store.Message
	Secondary    []store.Message
	NewMessage   string
}

// Manager builds context bundles from stored history.
type Manager struct {
	store *store.Store
	cfg   config.Context
}

// New creates a conversation context manager.
func New(s *store.Store, cfg config.Context) *Manager {
	return &Manager{store: s, cfg: cfg}
}

// BuildContext assembles the context bundle for an inbound user message.
// The message itself is not yet persisted; the caller appends it after,
// attributed to the bundle's topic.
//
// Side effects are limited to topic bookkeeping: when segmentation is on
// and the topic changed (or no topic exists yet), a topic is opened.
// Workflow and gate state are never touched here.
func (m *Manager) BuildContext(projectID, newMessage string) (*Bundle, error) {
	return m.buildContextAt(projectID, newMessage, time.Now().UTC())
}

func (m *Manager) buildContextAt(projectID, newMessage string, now time.Time) (*Bundle, error) {
	var topicID *string
	if m.cfg.TopicsOn() {
		topic, err := m.store.ActiveTopic(projectID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("active topic: %w", err)
		}
		if topic != nil {
			topicID = &topic.ID
		}
	}

	history, err := m.store.RecentMessages(projectID, topicID, m.cfg.HistoryLimit())
	if err != nil {
		// Windowing edge cases degrade to "no prior context" rather
		// than failing the turn.
		history = nil
	}

	changed := DetectTopicChange(history, newMessage, now, m.phrases(), m.cfg.Gap())

	bundle := &Bundle{
		TopicChanged: changed,
		TopicID:      topicID,
		NewMessage:   newMessage,
	}

	if m.cfg.TopicsOn() && (changed || topicID == nil) {
		topic, err := m.store.CreateTopic(projectID, topicTitle(newMessage), "")
		if err != nil {
			return nil, fmt.Errorf("open topic: %w", err)
		}
		bundle.TopicID = &topic.ID
		if changed {
			// The new topic has no messages yet; context is scoped to
			// the active topic, so history resets here.
			return bundle, nil
		}
	}

	if changed {
		// Segmentation disabled: keep only the tail of the old history,
		// marked so the reasoner deprioritizes everything else.
		bundle.Primary = tail(history, m.cfg.SwitchWindow())
		return bundle, nil
	}

	bundle.Primary = tail(history, m.cfg.PrimaryWindow())
	older := history[:len(history)-len(bundle.Primary)]
	bundle.Secondary = tail(older, m.cfg.SecondaryWindow())
	return bundle, nil
}

// DetectTopicChange reports whether the inbound message starts a new
// topic: either it contains an explicit switch phrase, or the gap since
// the previous message exceeds the threshold. Deterministic for a given
// input, so re-running it on the same pair always agrees.
func DetectTopicChange(history []store.Message, newMessage string, now time.Time, phrases []string, gap time.Duration) bool {
	lower := strings.ToLower(newMessage)
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return now.Sub(last.Timestamp) > gap
}

func (m *Manager) phrases() []string {
	if len(m.cfg.SwitchPhrases) > 0 {
		return m.cfg.SwitchPhrases
	}
	return defaultSwitchPhrases
}

// topicTitle derives a short topic title from the opening message:
// its first five words, with an ellipsis when truncated.
func topicTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return "Untitled topic"
	}
	if len(words) <= 5 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:5], " ") + "..."
}

func tail(msgs []store.Message, n int) []store.Message {
	if n <= 0 || len(msgs) == 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// Render formats the bundle as the history block of an agent prompt.
// Primary and secondary groups get separate headed sections so the
// weighting survives into plain text.
func (b *Bundle) Render() string {
	var sb strings.Builder

	if b.TopicChanged {
		sb.WriteString("**Note: the user has switched topics or corrected you. Disregard earlier material.**\n\n")
		if len(b.Primary) > 0 {
			sb.WriteString("## Current topic (focus on this)\n\n")
			writeMessages(&sb, b.Primary)
		}
	} else {
		if len(b.Primary) > 0 {
			sb.WriteString("## Current conversation (most important)\n\n")
			writeMessages(&sb, b.Primary)
		}
		if len(b.Secondary) > 0 {
			sb.WriteString("## Earlier context (lower priority, only if relevant)\n\n")
			writeMessages(&sb, b.Secondary)
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("**Current user message**: %s\n", b.NewMessage))
	return sb.String()
}

func writeMessages(sb *strings.Builder, msgs []store.Message) {
	for _, m := range msgs {
		name := "User"
		switch m.Role {
		case store.RoleAssistant:
			name = "Assistant"
		case store.RoleSystem:
			name = "System"
		}
		sb.WriteString(fmt.Sprintf("**%s**: %s\n\n", name, m.Content))
	}
}
