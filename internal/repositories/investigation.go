package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/sqlite"
)

type InvestigationRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewInvestigationRepository(db *sqlite.Database, logger *slog.Logger) *InvestigationRepository {
	return &InvestigationRepository{
		db:     db,
		logger: logger.With("source", "InvestigationRepository"),
	}
}

// Get returns the interrogation of the NPC with its completions in order.
//
// It returns [ErrNotFound] if the case or the NPC doesn't exist.
func (r *InvestigationRepository) Get(ctx context.Context, caseID string, npcID string) (*models.Interrogation, error) {
	var (
		npc         npcRow
		completions []models.Completion
		err         error
	)
	attrs := []slog.Attr{slog.String("case_id", caseID), slog.String("npc_id", npcID)}

	// Duplicate NPC ids are possible in generated cases, the first one wins.
	stmt := `SELECT case_id, position, npc_id, name, role, personality, motive, alibi
FROM npcs
WHERE case_id = ? AND npc_id = ?
ORDER BY position
LIMIT 1`
	if err = r.db.ReadOnly.GetContext(ctx, &npc, stmt, caseID, npcID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "read npc", attrs...)
		}
		return nil, errors.Wrap(err, "read npc", attrs...)
	}

	stmt = `SELECT id, "order", question, answer
FROM completions
WHERE case_id = ? AND npc_id = ?
ORDER BY "order"`
	if err = r.db.ReadOnly.SelectContext(ctx, &completions, stmt, caseID, npcID); err != nil {
		return nil, errors.Wrap(err, "query completions", attrs...)
	}
	if completions == nil {
		completions = []models.Completion{}
	}

	return &models.Interrogation{
		CaseID: caseID,
		NPC: models.NPC{
			ID:          npc.NPCID,
			Name:        npc.Name,
			Role:        npc.Role,
			Personality: npc.Personality,
			Motive:      npc.Motive,
			Alibi:       npc.Alibi,
		},
		Completions: completions,
	}, nil
}

// FinishCompletion appends a question and answer pair to the interrogation of the NPC and returns it.
//
// The order of the completion follows the last stored completion of the same NPC, starting from 0.
func (r *InvestigationRepository) FinishCompletion(
	ctx context.Context,
	caseID string,
	npcID string,
	question string,
	answer string,
) (models.Completion, error) {
	stmt := `INSERT INTO completions (case_id, npc_id, "order", question, answer)
VALUES (@case_id, @npc_id,
        (SELECT COALESCE(MAX("order") + 1, 0) FROM completions WHERE case_id = @case_id AND npc_id = @npc_id),
        @question, @answer)
RETURNING id, "order", question, answer`
	var completion models.Completion
	if err := r.db.ReadWrite.GetContext(ctx, &completion, stmt,
		sql.Named("case_id", caseID),
		sql.Named("npc_id", npcID),
		sql.Named("question", question),
		sql.Named("answer", answer),
	); err != nil {
		return models.Completion{}, errors.Wrap(err, "insert completion",
			slog.String("case_id", caseID), slog.String("npc_id", npcID))
	}
	return completion, nil
}
