package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/generator"
	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/repositories"
	"github.com/spf13/cobra"
)

var errInvalidCase = errors.NewSentinel("invalid case")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode JSON")
	}
	return nil
}

func (c *cli) generateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "generate [theme]",
		GroupID: casesGroup.ID,
		Short:   "Generate and store a case",
		Long: `Drafts a case for the theme with the creative model, repairs it once with the cheap model if it
breaks the schema, and has it reviewed and briefed before storing it.`,
		Example: `  casefile generate "Victorian England"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := c.logger(cmd)
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

			gen := generator.New(clients, logger)
			gen.StageTimeout = cfg.StageTimeout
			generated, err := gen.Generate(ctx, strings.Join(args, " "))
			if err != nil {
				return errors.Wrap(err, "generate case")
			}
			if err = repositories.NewCaseRepository(db, logger).Save(ctx, generated); err != nil {
				return errors.Wrap(err, "save case")
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), generated)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderCase(generated))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored case as JSON")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate FILE",
		GroupID: casesGroup.ID,
		Short:   "Validate a case JSON file",
		Long: `Checks that the file holds a case with every required field of the expected type and reports
clues referring to unknown characters. Use - to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return errors.Wrap(err, "read case")
			}

			out := cmd.OutOrStdout()
			s := newStyles(out)
			parsed, err := models.DecodeCase(data)
			var validationErr *models.ValidationError
			if errors.As(err, &validationErr) {
				_, _ = fmt.Fprint(out, s.renderIssues(validationErr.Issues))
				return errors.Wrap(errInvalidCase, args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, s.success.Render(fmt.Sprintf("valid case %s", parsed.CaseID))+"\n"+
				s.renderReferenceIssues(models.CheckReferences(parsed)))
			return err
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		GroupID: casesGroup.ID,
		Short:   "List stored cases, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := c.logger(cmd)
			cfg, err := c.config()
			if err != nil {
				return err
			}
			db, closeDB, err := c.openDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			summaries, err := repositories.NewCaseRepository(db, logger).List(ctx)
			if err != nil {
				return errors.Wrap(err, "list cases")
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderSummaries(summaries))
			return err
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "show CASE_ID",
		GroupID: casesGroup.ID,
		Short:   "Show a stored case",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := c.logger(cmd)
			cfg, err := c.config()
			if err != nil {
				return err
			}
			db, closeDB, err := c.openDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			generated, err := repositories.NewCaseRepository(db, logger).Get(ctx, args[0])
			if err != nil {
				return errors.Wrap(err, "get case "+args[0])
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), generated)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderCase(generated))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the case as JSON")
	return cmd
}
