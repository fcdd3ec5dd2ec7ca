package interrogation

import (
	"fmt"
	"strings"

	"github.com/myrjola/casefile/internal/models"
)

// shortTermCapacity is the number of most recent messages an NPC remembers verbatim.
const shortTermCapacity = 5

type Sender string

const (
	SenderPlayer Sender = "Player"
	SenderNPC    Sender = "NPC"
)

type Message struct {
	Sender Sender
	Text   string
}

type Emotion string

const (
	EmotionNeutral Emotion = "Neutral"
	EmotionNervous Emotion = "Nervous"
)

// Memory is what an NPC remembers about the interrogation so far.
type Memory struct {
	ShortTerm []Message
	// LongTerm is the NPC's profile in prose.
	LongTerm string
	// Emotion becomes nervous once any message mentions murder or a killer and stays so.
	Emotion Emotion
}

func NewMemory(npc models.NPC) *Memory {
	return &Memory{
		ShortTerm: make([]Message, 0, shortTermCapacity),
		LongTerm:  fmt.Sprintf("You are %s. %s. Personality: %s.", npc.Name, npc.Role, npc.Personality),
		Emotion:   EmotionNeutral,
	}
}

// ReplayMemory rebuilds the memory from stored completions in order.
func ReplayMemory(npc models.NPC, completions []models.Completion) *Memory {
	m := NewMemory(npc)
	for _, c := range completions {
		m.Remember(SenderPlayer, c.Question)
		m.Remember(SenderNPC, c.Answer)
	}
	return m
}

// Remember appends a message, forgetting the oldest one beyond the short-term capacity.
func (m *Memory) Remember(sender Sender, text string) {
	m.ShortTerm = append(m.ShortTerm, Message{Sender: sender, Text: text})
	if len(m.ShortTerm) > shortTermCapacity {
		m.ShortTerm = append(m.ShortTerm[:0], m.ShortTerm[len(m.ShortTerm)-shortTermCapacity:]...)
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "murder") || strings.Contains(lower, "killer") {
		m.Emotion = EmotionNervous
	}
}

// RecentHistory renders the short-term memory one "Sender: text" line per message.
func (m *Memory) RecentHistory() string {
	lines := make([]string, 0, len(m.ShortTerm))
	for _, msg := range m.ShortTerm {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Text))
	}
	return strings.Join(lines, "\n")
}
