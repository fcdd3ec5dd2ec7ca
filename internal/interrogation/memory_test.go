package interrogation_test

import (
	"fmt"
	"testing"

	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/models"
	"github.com/stretchr/testify/require"
)

func TestMemory_Remember(t *testing.T) {
	npc := testCase().NPCs[0]
	memory := interrogation.NewMemory(npc)
	require.Equal(t, "You are Adolphe Le Bon. bank clerk. Personality: nervous.", memory.LongTerm)
	require.Equal(t, interrogation.EmotionNeutral, memory.Emotion)

	for i := range 7 {
		memory.Remember(interrogation.SenderPlayer, fmt.Sprintf("question %d", i))
	}
	require.Len(t, memory.ShortTerm, 5, "only the last five messages are kept")
	require.Equal(t, "question 2", memory.ShortTerm[0].Text)
	require.Equal(t, "question 6", memory.ShortTerm[4].Text)
	require.Equal(t, interrogation.EmotionNeutral, memory.Emotion)

	memory.Remember(interrogation.SenderNPC, "I know nothing about the MURDER.")
	require.Equal(t, interrogation.EmotionNervous, memory.Emotion)
	for i := range 5 {
		memory.Remember(interrogation.SenderPlayer, fmt.Sprintf("calm %d", i))
	}
	require.Equal(t, interrogation.EmotionNervous, memory.Emotion, "nervousness persists after forgetting")
}

func TestReplayMemory(t *testing.T) {
	memory := interrogation.ReplayMemory(testCase().NPCs[1], []models.Completion{
		{ID: 1, Order: 0, Question: "[Neutral] AskAboutAlibi", Answer: "At the docks."},
		{ID: 2, Order: 1, Question: "[Aggressive] HardAccusation", Answer: "I'm no killer!"},
	})
	require.Equal(t, interrogation.EmotionNervous, memory.Emotion)
	require.Equal(t, `Player: [Neutral] AskAboutAlibi
NPC: At the docks.
Player: [Aggressive] HardAccusation
NPC: I'm no killer!`, memory.RecentHistory())
}
