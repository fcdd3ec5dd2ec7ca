package interrogation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
)

var (
	ErrUnknownIntent = errors.NewSentinel("unknown intent")
	ErrUnknownTone   = errors.NewSentinel("unknown tone")
	ErrClueRequired  = errors.NewSentinel("intent requires a target clue")
	ErrUnknownClue   = errors.NewSentinel("unknown clue")
)

// Intent is what the player wants to achieve with a question.
type Intent string

const (
	AskAboutVictim       Intent = "AskAboutVictim"
	AskAboutAlibi        Intent = "AskAboutAlibi"
	AskAboutTimeline     Intent = "AskAboutTimeline"
	AskAboutLocation     Intent = "AskAboutLocation"
	AskAboutRelationship Intent = "AskAboutRelationship"
	AskAboutClue         Intent = "AskAboutClue"
	AskAboutWeapon       Intent = "AskAboutWeapon"
	AskAboutMotive       Intent = "AskAboutMotive"
	SoftAccusation       Intent = "SoftAccusation"
	HardAccusation       Intent = "HardAccusation"
	ConfrontWithEvidence Intent = "ConfrontWithEvidence"
)

var intentPrompts = map[Intent]string{
	AskAboutVictim:       "The player asks you about the victim and your relationship with them.",
	AskAboutAlibi:        "The player asks where you were at the time of the crime.",
	AskAboutTimeline:     "The player asks what you remember about the events around the crime.",
	AskAboutLocation:     "The player asks about the crime scene location.",
	AskAboutRelationship: "The player asks about your relationship with the other suspects.",
	AskAboutClue:         "The player asks about this clue: %s",
	AskAboutWeapon:       "The player asks about the possible weapon.",
	AskAboutMotive:       "The player asks if anyone had a motive.",
	SoftAccusation:       "The player is gently accusing you.",
	HardAccusation:       "The player is directly accusing you.",
	ConfrontWithEvidence: "The player presents evidence against you: %s",
}

// Intents lists every intent in the order they're offered to the player.
func Intents() []Intent {
	return []Intent{
		AskAboutVictim, AskAboutAlibi, AskAboutTimeline, AskAboutLocation, AskAboutRelationship, AskAboutClue,
		AskAboutWeapon, AskAboutMotive, SoftAccusation, HardAccusation, ConfrontWithEvidence,
	}
}

// RequiresClue reports whether the intent refers to a clue of the case.
func (i Intent) RequiresClue() bool {
	return i == AskAboutClue || i == ConfrontWithEvidence
}

// Tone is how the player delivers a question.
type Tone string

const (
	Neutral    Tone = "Neutral"
	Friendly   Tone = "Friendly"
	Aggressive Tone = "Aggressive"
	Suspicious Tone = "Suspicious"
)

func Tones() []Tone {
	return []Tone{Neutral, Friendly, Aggressive, Suspicious}
}

// Interaction is a structured question from the player to an NPC.
type Interaction struct {
	Intent       Intent `json:"intent"`
	Tone         Tone   `json:"tone"`
	TargetClueID string `json:"target_clue_id,omitempty"`
}

// Validate checks the intent and tone, and that the clue the intent refers to exists in c.
// A target clue is ignored by intents not referring to clues.
func (in Interaction) Validate(c *models.Case) error {
	var errorList []error
	if _, ok := intentPrompts[in.Intent]; !ok {
		errorList = append(errorList, errors.Wrap(ErrUnknownIntent, "validate intent",
			slog.String("intent", string(in.Intent))))
	}
	switch in.Tone {
	case Neutral, Friendly, Aggressive, Suspicious:
	default:
		errorList = append(errorList, errors.Wrap(ErrUnknownTone, "validate tone", slog.String("tone", string(in.Tone))))
	}
	if in.Intent.RequiresClue() {
		if in.TargetClueID == "" {
			errorList = append(errorList, errors.Wrap(ErrClueRequired, "validate clue",
				slog.String("intent", string(in.Intent))))
		} else if _, ok := c.Clue(in.TargetClueID); !ok {
			errorList = append(errorList, errors.Wrap(ErrUnknownClue, "validate clue",
				slog.String("clue_id", in.TargetClueID)))
		}
	}
	return errors.Join(errorList...)
}

// MemoryLog renders the interaction as the player's line in the NPC's memory, e.g. "[Aggressive] AskAboutClue
// (Clue: c1)".
func (in Interaction) MemoryLog() string {
	log := fmt.Sprintf("[%s] %s", in.Tone, in.Intent)
	if in.Intent.RequiresClue() && in.TargetClueID != "" {
		log += fmt.Sprintf(" (Clue: %s)", in.TargetClueID)
	}
	return log
}

// prompt describes the interaction to the NPC. Clue intents include the clue's description and location.
func (in Interaction) prompt(c *models.Case) string {
	template, ok := intentPrompts[in.Intent]
	if !ok {
		return "The player asks a question."
	}
	if !in.Intent.RequiresClue() {
		return template
	}
	clue, _ := c.Clue(in.TargetClueID)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)", clue.Description, clue.ID)
	if clue.LocationHint != "" {
		fmt.Fprintf(&sb, ", found at %s", clue.LocationHint)
	}
	return fmt.Sprintf(template, sb.String())
}
