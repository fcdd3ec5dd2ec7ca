package main

import (
	"fmt"
	"strings"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/repositories"
	"github.com/spf13/cobra"
)

func joinIntents() string {
	intents := make([]string, 0, len(interrogation.Intents()))
	for _, intent := range interrogation.Intents() {
		intents = append(intents, string(intent))
	}
	return strings.Join(intents, ", ")
}

func joinTones() string {
	tones := make([]string, 0, len(interrogation.Tones()))
	for _, tone := range interrogation.Tones() {
		tones = append(tones, string(tone))
	}
	return strings.Join(tones, ", ")
}

func (c *cli) askCmd() *cobra.Command {
	var interaction interrogation.Interaction
	cmd := &cobra.Command{
		Use:     "ask CASE_ID NPC_ID",
		GroupID: interrogationGroup.ID,
		Short:   "Question a suspect",
		Long: fmt.Sprintf(`Puts a question to a character of a stored case and prints the answer as it streams in.
The character remembers the previous questions.

Intents: %s
Tones: %s`, joinIntents(), joinTones()),
		Example: `  casefile ask case-001 npc_1 --intent AskAboutAlibi --tone Suspicious
  casefile ask case-001 npc_1 --intent ConfrontWithEvidence --clue clue_2`,
		Args: cobra.ExactArgs(2), //nolint:mnd // case and NPC
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := c.logger(cmd)
			caseID, npcID := args[0], args[1]
			cfg, err := c.config()
			if err != nil {
				return err
			}
			clients, err := c.clients(cfg)
			if err != nil {
				return errors.Wrap(err, "create model clients")
			}
			db, closeDB, err := c.openDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			cases := repositories.NewCaseRepository(db, logger)
			generated, err := cases.Get(ctx, caseID)
			if err != nil {
				return errors.Wrap(err, "get case "+caseID)
			}
			npc, ok := generated.Case.NPC(npcID)
			if !ok {
				return errors.Wrap(interrogation.ErrUnknownNPC, npcID)
			}
			if err = interaction.Validate(&generated.Case); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := newStyles(out)
			_, _ = fmt.Fprintln(out, s.dim.Render(interaction.MemoryLog()))
			_, _ = fmt.Fprintln(out, s.label.Render(npc.Name+":"))

			interrogator := interrogation.NewInterrogator(cases, repositories.NewInvestigationRepository(db, logger),
				clients.Creative, logger)
			chunks := make(chan string, ai.MaxTokens)
			done := make(chan error, 1)
			go func() {
				_, askErr := interrogator.Ask(ctx, caseID, npcID, interaction, chunks)
				done <- askErr
			}()
			for chunk := range chunks {
				_, _ = fmt.Fprint(out, chunk)
			}
			_, _ = fmt.Fprintln(out)
			if err = <-done; err != nil {
				return errors.Wrap(err, "ask")
			}
			return nil
		},
	}
	cmd.Flags().StringVar((*string)(&interaction.Intent), "intent", string(interrogation.AskAboutAlibi),
		"what to ask about")
	cmd.Flags().StringVar((*string)(&interaction.Tone), "tone", string(interrogation.Neutral), "how to ask")
	cmd.Flags().StringVar(&interaction.TargetClueID, "clue", "", "clue to ask about or confront with")
	return cmd
}
