package interrogation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/repositories"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrUnknownCase = errors.NewSentinel("unknown case")
	ErrUnknownNPC  = errors.NewSentinel("unknown npc")
)

type caseGetter interface {
	Get(ctx context.Context, caseID string) (*models.GeneratedCase, error)
}

type completionStore interface {
	Get(ctx context.Context, caseID string, npcID string) (*models.Interrogation, error)
	FinishCompletion(ctx context.Context, caseID string, npcID string, question string, answer string) (
		models.Completion, error)
}

// Interrogator lets the player question the NPCs of stored cases.
type Interrogator struct {
	cases       caseGetter
	completions completionStore
	model       ai.Completer
	logger      *slog.Logger
}

// NewInterrogator uses model to role-play the NPCs. The creative model fits best.
func NewInterrogator(
	cases caseGetter,
	completions completionStore,
	model ai.Completer,
	logger *slog.Logger,
) *Interrogator {
	return &Interrogator{
		cases:       cases,
		completions: completions,
		model:       model,
		logger:      logger.With("source", "Interrogator"),
	}
}

// Ask puts the interaction to the NPC, streams the answer to chunks, and stores the exchange.
//
// chunks is closed when Ask returns.
func (i *Interrogator) Ask(
	ctx context.Context,
	caseID string,
	npcID string,
	interaction Interaction,
	chunks chan<- string,
) (models.Completion, error) {
	var (
		err           error
		generated     *models.GeneratedCase
		interrogation *models.Interrogation
	)
	attrs := []slog.Attr{slog.String("case_id", caseID), slog.String("npc_id", npcID)}

	prepare := func() ([]openai.ChatCompletionMessage, error) {
		if generated, err = i.cases.Get(ctx, caseID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, errors.Wrap(ErrUnknownCase, "get case", attrs...)
			}
			return nil, errors.Wrap(err, "get case", attrs...)
		}
		if err = interaction.Validate(&generated.Case); err != nil {
			return nil, errors.Wrap(err, "validate interaction", attrs...)
		}
		if interrogation, err = i.completions.Get(ctx, caseID, npcID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, errors.Wrap(ErrUnknownNPC, "get interrogation", attrs...)
			}
			return nil, errors.Wrap(err, "get interrogation", attrs...)
		}
		memory := ReplayMemory(interrogation.NPC, interrogation.Completions)
		memory.Remember(SenderPlayer, interaction.MemoryLog())
		return Messages(&generated.Case, interrogation.NPC, interaction, memory), nil
	}

	messages, err := prepare()
	if err != nil {
		close(chunks)
		return models.Completion{}, err
	}

	var answer string
	if answer, err = i.model.StreamCompletion(ctx, messages, chunks); err != nil {
		return models.Completion{}, errors.Wrap(err, "stream answer", attrs...)
	}

	var completion models.Completion
	if completion, err = i.completions.FinishCompletion(ctx, caseID, npcID, interaction.MemoryLog(), answer); err != nil {
		return models.Completion{}, errors.Wrap(err, "finish completion", attrs...)
	}
	i.logger.LogAttrs(ctx, slog.LevelInfo, "npc answered",
		append(attrs, slog.String("intent", string(interaction.Intent)), slog.Int64("order", completion.Order))...)
	return completion, nil
}

// Messages builds the chat for the NPC's next answer.
func Messages(
	c *models.Case,
	npc models.NPC,
	interaction Interaction,
	memory *Memory,
) []openai.ChatCompletionMessage {
	var system strings.Builder
	fmt.Fprintf(&system, `You are acting as a character in a mystery about a %s.
Victim: %s
Location: %s

Name: %s
Role: %s
Personality: %s
Motive: %s
Alibi: %s
Knowledge: %s
Emotional state: %s

Player intent: %s
Player tone: %s
Prompt: %s

Rules:
- Never reveal the culprit unless cornered with strong evidence and the intent is %s or %s.
- Keep responses short, one or two sentences.
- Stay consistent with your alibi and the clues.
- If evidence contradicts your alibi, react accordingly.
- If innocent, provide helpful but uncertain details.
- If guilty, deflect, lie subtly or redirect the conversation.`,
		c.Crime, c.Victim, c.Location,
		npc.Name, npc.Role, npc.Personality, npc.Motive, npc.Alibi, memory.LongTerm, memory.Emotion,
		interaction.Intent, interaction.Tone, interaction.prompt(c),
		HardAccusation, ConfrontWithEvidence)

	user := fmt.Sprintf("Recent chat history:\n%s\n\nPlayer action: %s", memory.RecentHistory(), interaction.MemoryLog())

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system.String()},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}
