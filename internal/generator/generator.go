package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyTheme is returned when the case theme is blank.
var ErrEmptyTheme = errors.NewSentinel("empty theme")

// ErrNoVerdict is returned when the review doesn't say whether the case is consistent.
var ErrNoVerdict = errors.NewSentinel("review has no verdict")

// Names of the optional stages recorded in [models.GeneratedCase.StageFailures].
const (
	StageReview   = "review"
	StageBriefing = "briefing"
)

// DefaultStageTimeout bounds every model call of the pipeline.
const DefaultStageTimeout = 2 * time.Minute

// Generator drafts, validates and enriches cases with the three registry models.
type Generator struct {
	clients ai.Clients
	logger  *slog.Logger
	// StageTimeout bounds each model call separately.
	StageTimeout time.Duration
}

func New(clients ai.Clients, logger *slog.Logger) *Generator {
	return &Generator{
		clients:      clients,
		logger:       logger.With("source", "Generator"),
		StageTimeout: DefaultStageTimeout,
	}
}

// Generate produces a validated case for the theme.
//
// The creative model drafts the case. If the draft doesn't validate, the cheap model gets one chance to repair it,
// after which the validation error is returned. The review by the full model and the briefing by the cheap model
// run concurrently and their failures are only recorded in the result.
func (g *Generator) Generate(ctx context.Context, theme string) (*models.GeneratedCase, error) {
	var (
		err   error
		draft string
		c     *models.Case
	)
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, errors.Wrap(ErrEmptyTheme, "generate")
	}
	themeAttr := slog.String("theme", theme)

	if draft, err = g.complete(ctx, g.clients.Creative, draftMessages(theme), ai.FormatJSON); err != nil {
		return nil, errors.Wrap(err, "draft case", themeAttr)
	}

	if c, err = parseCase(draft); err != nil {
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			return nil, errors.Wrap(err, "parse draft", themeAttr)
		}
		g.logger.LogAttrs(ctx, slog.LevelWarn, "repairing invalid draft", themeAttr, slog.Any("issues", validationErr))
		var repaired string
		if repaired, err = g.complete(ctx, g.clients.Cheap, repairMessages(draft, validationErr.Issues),
			ai.FormatJSON); err != nil {
			return nil, errors.Wrap(err, "repair case", themeAttr)
		}
		if c, err = parseCase(repaired); err != nil {
			return nil, errors.Wrap(err, "parse repaired case", themeAttr)
		}
	}

	generated := &models.GeneratedCase{
		Case:            *c,
		Theme:           theme,
		Briefing:        "",
		Review:          nil,
		ReferenceIssues: models.CheckReferences(c),
		StageFailures:   nil,
		Created:         time.Now(),
	}
	caseAttr := slog.String("case_id", c.CaseID)
	if len(generated.ReferenceIssues) > 0 {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "case has broken references", caseAttr,
			slog.Int("count", len(generated.ReferenceIssues)))
	}

	g.enrich(ctx, generated)

	g.logger.LogAttrs(ctx, slog.LevelInfo, "generated case", caseAttr, themeAttr,
		slog.Any("stage_failures", generated.StageFailures))
	return generated, nil
}

// enrich runs the review and briefing stages concurrently. A failed stage is logged and recorded.
func (g *Generator) enrich(ctx context.Context, generated *models.GeneratedCase) {
	caseAttr := slog.String("case_id", generated.Case.CaseID)
	caseJSON, err := json.MarshalIndent(generated.Case, "", "  ")
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "marshal case", caseAttr, errors.SlogError(err))
		generated.StageFailures = append(generated.StageFailures, StageReview, StageBriefing)
		return
	}

	var (
		eg          errgroup.Group
		review      *models.Review
		briefing    string
		reviewErr   error
		briefingErr error
	)
	eg.Go(func() error {
		review, reviewErr = g.review(ctx, string(caseJSON))
		return nil
	})
	eg.Go(func() error {
		briefing, briefingErr = g.complete(ctx, g.clients.Cheap, briefingMessages(string(caseJSON)), ai.FormatText)
		return nil
	})
	_ = eg.Wait()

	if reviewErr != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "review failed", caseAttr, errors.SlogError(reviewErr))
		generated.StageFailures = append(generated.StageFailures, StageReview)
	} else {
		generated.Review = review
	}
	if briefingErr != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "briefing failed", caseAttr, errors.SlogError(briefingErr))
		generated.StageFailures = append(generated.StageFailures, StageBriefing)
	} else {
		generated.Briefing = strings.TrimSpace(briefing)
	}
}

func (g *Generator) review(ctx context.Context, caseJSON string) (*models.Review, error) {
	var (
		err    error
		answer string
		object []byte
		review struct {
			Consistent *bool  `json:"consistent"`
			Notes      string `json:"notes"`
		}
	)
	if answer, err = g.complete(ctx, g.clients.Full, reviewMessages(caseJSON), ai.FormatJSON); err != nil {
		return nil, errors.Wrap(err, "review case")
	}
	if object, err = ExtractJSON(answer); err != nil {
		return nil, errors.Wrap(err, "parse review")
	}
	if err = json.Unmarshal(object, &review); err != nil {
		return nil, errors.Wrap(err, "decode review")
	}
	if review.Consistent == nil {
		return nil, errors.Wrap(ErrNoVerdict, "decode review", slog.String("review", string(object)))
	}
	return &models.Review{Consistent: *review.Consistent, Notes: review.Notes}, nil
}

// complete calls the model with the stage timeout.
func (g *Generator) complete(
	ctx context.Context,
	model ai.Completer,
	messages []openai.ChatCompletionMessage,
	format ai.Format,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.StageTimeout)
	defer cancel()
	start := time.Now()
	answer, err := model.SyncCompletion(ctx, messages, format)
	g.logger.LogAttrs(ctx, slog.LevelDebug, "model call finished",
		slog.Any("model", model.Model()), slog.Duration("duration", time.Since(start)), slog.Bool("ok", err == nil))
	if err != nil {
		return "", errors.Wrap(err, "complete", slog.String("role", model.Model().Name))
	}
	return answer, nil
}

// parseCase extracts, decodes and validates a case from model output. A missing case_id is generated.
func parseCase(text string) (*models.Case, error) {
	object, err := ExtractJSON(text)
	if err != nil {
		return nil, &models.ValidationError{Issues: []models.Issue{{Path: "$", Problem: "no JSON object found"}}}
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(object))
	dec.UseNumber()
	if err = dec.Decode(&raw); err != nil {
		return nil, &models.ValidationError{Issues: []models.Issue{{Path: "$", Problem: "malformed JSON: " + err.Error()}}}
	}
	if obj, ok := raw.(map[string]any); ok {
		if id, present := obj["case_id"]; !present || id == "" {
			obj["case_id"] = "case-" + uuid.NewString()
		}
	}
	return models.Validate(raw)
}
