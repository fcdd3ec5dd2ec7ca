package interrogation_test

import (
	"testing"

	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/models"
	"github.com/stretchr/testify/require"
)

func testCase() *models.Case {
	return &models.Case{
		CaseID:   "rue-morgue",
		Crime:    "double murder",
		Victim:   "Madame L'Espanaye",
		Location: "Rue Morgue, Paris",
		NPCs: []models.NPC{
			{ID: "le-bon", Name: "Adolphe Le Bon", Role: "bank clerk", Personality: "nervous", Motive: "", Alibi: "home"},
			{ID: "sailor", Name: "The Sailor", Role: "animal owner", Personality: "guilty", Motive: "", Alibi: "docks"},
		},
		Clues: []models.Clue{
			{ID: "hair", Description: "tuft of tawny hair", RelatesTo: []string{"sailor"}, LocationHint: "victim's hand"},
		},
		Solution: "An escaped orangutan.",
	}
}

func TestInteraction_Validate(t *testing.T) {
	tests := []struct {
		name        string
		interaction interrogation.Interaction
		wantErrs    []error
	}{
		{
			name:        "plain question",
			interaction: interrogation.Interaction{Intent: interrogation.AskAboutAlibi, Tone: interrogation.Neutral},
		},
		{
			name: "clue question",
			interaction: interrogation.Interaction{
				Intent: interrogation.AskAboutClue, Tone: interrogation.Suspicious, TargetClueID: "hair",
			},
		},
		{
			name: "clue ignored by plain intent",
			interaction: interrogation.Interaction{
				Intent: interrogation.AskAboutMotive, Tone: interrogation.Friendly, TargetClueID: "nonexistent",
			},
		},
		{
			name:        "confrontation without clue",
			interaction: interrogation.Interaction{Intent: interrogation.ConfrontWithEvidence, Tone: interrogation.Aggressive},
			wantErrs:    []error{interrogation.ErrClueRequired},
		},
		{
			name: "unknown clue",
			interaction: interrogation.Interaction{
				Intent: interrogation.ConfrontWithEvidence, Tone: interrogation.Aggressive, TargetClueID: "knife",
			},
			wantErrs: []error{interrogation.ErrUnknownClue},
		},
		{
			name:        "unknown intent and tone",
			interaction: interrogation.Interaction{Intent: "Flatter", Tone: "Sarcastic"},
			wantErrs:    []error{interrogation.ErrUnknownIntent, interrogation.ErrUnknownTone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.interaction.Validate(testCase())
			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
				return
			}
			for _, wantErr := range tt.wantErrs {
				require.ErrorIs(t, err, wantErr)
			}
		})
	}
}

func TestInteraction_MemoryLog(t *testing.T) {
	require.Equal(t, "[Aggressive] AskAboutClue (Clue: hair)", interrogation.Interaction{
		Intent: interrogation.AskAboutClue, Tone: interrogation.Aggressive, TargetClueID: "hair",
	}.MemoryLog())
	require.Equal(t, "[Neutral] AskAboutVictim", interrogation.Interaction{
		Intent: interrogation.AskAboutVictim, Tone: interrogation.Neutral, TargetClueID: "hair",
	}.MemoryLog())
}

func TestIntentsAndTones(t *testing.T) {
	require.Len(t, interrogation.Intents(), 11)
	require.Len(t, interrogation.Tones(), 4)
	for _, intent := range interrogation.Intents() {
		err := interrogation.Interaction{Intent: intent, Tone: interrogation.Neutral, TargetClueID: "hair"}.
			Validate(testCase())
		require.NoError(t, err, intent)
	}
}
