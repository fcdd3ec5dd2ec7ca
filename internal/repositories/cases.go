package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/sqlite"
)

var (
	ErrNotFound      = errors.NewSentinel("not found")
	ErrDuplicateCase = errors.NewSentinel("case already exists")
)

// timeFormat is fixed width so that timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type CaseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewCaseRepository(db *sqlite.Database, logger *slog.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger.With("source", "CaseRepository"),
	}
}

type caseRow struct {
	ID            string        `db:"id"`
	Theme         string        `db:"theme"`
	Crime         string        `db:"crime"`
	Victim        string        `db:"victim"`
	Location      string        `db:"location"`
	Solution      string        `db:"solution"`
	Briefing      string        `db:"briefing"`
	Consistent    sql.NullInt64 `db:"consistent"`
	ReviewNotes   string        `db:"review_notes"`
	StageFailures string        `db:"stage_failures"`
	Created       string        `db:"created"`
}

type npcRow struct {
	CaseID      string `db:"case_id"`
	Position    int    `db:"position"`
	NPCID       string `db:"npc_id"`
	Name        string `db:"name"`
	Role        string `db:"role"`
	Personality string `db:"personality"`
	Motive      string `db:"motive"`
	Alibi       string `db:"alibi"`
}

type clueRow struct {
	CaseID       string `db:"case_id"`
	Position     int    `db:"position"`
	ClueID       string `db:"clue_id"`
	Description  string `db:"description"`
	LocationHint string `db:"location_hint"`
	RelatesTo    string `db:"relates_to"`
}

type referenceIssueRow struct {
	CaseID    string `db:"case_id"`
	Kind      string `db:"kind"`
	SubjectID string `db:"subject_id"`
	Reference string `db:"reference"`
}

// Ping checks that the database answers.
func (r *CaseRepository) Ping(ctx context.Context) error {
	if err := r.db.ReadOnly.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}
	return nil
}

// Save stores the generated case with its NPCs, clues and reference issues in one transaction.
// Created is set to the current time when it's zero.
func (r *CaseRepository) Save(ctx context.Context, generated *models.GeneratedCase) error {
	var (
		err error
		tx  *sqlx.Tx
	)
	if generated.Created.IsZero() {
		generated.Created = time.Now()
	}
	row, err := toCaseRow(generated)
	if err != nil {
		return err
	}
	caseAttr := slog.String("case_id", row.ID)

	if tx, err = r.db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not rollback", errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO cases (id, theme, crime, victim, location, solution, briefing, consistent, review_notes,
                   stage_failures, created)
VALUES (:id, :theme, :crime, :victim, :location, :solution, :briefing, :consistent, :review_notes, :stage_failures,
        :created)`
	if _, err = tx.NamedExecContext(ctx, stmt, row); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errors.Wrap(ErrDuplicateCase, "insert case", caseAttr)
		}
		return errors.Wrap(err, "insert case", caseAttr)
	}

	c := generated.Case
	for i, npc := range c.NPCs {
		stmt = `INSERT INTO npcs (case_id, position, npc_id, name, role, personality, motive, alibi)
VALUES (:case_id, :position, :npc_id, :name, :role, :personality, :motive, :alibi)`
		if _, err = tx.NamedExecContext(ctx, stmt, npcRow{
			CaseID:      c.CaseID,
			Position:    i,
			NPCID:       npc.ID,
			Name:        npc.Name,
			Role:        npc.Role,
			Personality: npc.Personality,
			Motive:      npc.Motive,
			Alibi:       npc.Alibi,
		}); err != nil {
			return errors.Wrap(err, "insert npc", caseAttr, slog.String("npc_id", npc.ID))
		}
	}

	for i, clue := range c.Clues {
		var relatesTo []byte
		if relatesTo, err = json.Marshal(nonNil(clue.RelatesTo)); err != nil {
			return errors.Wrap(err, "marshal relates_to")
		}
		stmt = `INSERT INTO clues (case_id, position, clue_id, description, location_hint, relates_to)
VALUES (:case_id, :position, :clue_id, :description, :location_hint, :relates_to)`
		if _, err = tx.NamedExecContext(ctx, stmt, clueRow{
			CaseID:       c.CaseID,
			Position:     i,
			ClueID:       clue.ID,
			Description:  clue.Description,
			LocationHint: clue.LocationHint,
			RelatesTo:    string(relatesTo),
		}); err != nil {
			return errors.Wrap(err, "insert clue", caseAttr, slog.String("clue_id", clue.ID))
		}
	}

	for _, issue := range generated.ReferenceIssues {
		stmt = `INSERT INTO reference_issues (case_id, kind, subject_id, reference)
VALUES (:case_id, :kind, :subject_id, :reference)`
		if _, err = tx.NamedExecContext(ctx, stmt, referenceIssueRow{
			CaseID:    c.CaseID,
			Kind:      string(issue.Kind),
			SubjectID: issue.SubjectID,
			Reference: issue.Reference,
		}); err != nil {
			return errors.Wrap(err, "insert reference issue", caseAttr)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit", caseAttr)
	}
	return nil
}

// Get returns the stored case or [ErrNotFound].
func (r *CaseRepository) Get(ctx context.Context, caseID string) (*models.GeneratedCase, error) {
	var (
		err    error
		row    caseRow
		npcs   []npcRow
		clues  []clueRow
		issues []referenceIssueRow
	)
	caseAttr := slog.String("case_id", caseID)

	stmt := `SELECT id, theme, crime, victim, location, solution, briefing, consistent, review_notes, stage_failures,
       created
FROM cases
WHERE id = ?`
	if err = r.db.ReadOnly.GetContext(ctx, &row, stmt, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get case", caseAttr)
		}
		return nil, errors.Wrap(err, "get case", caseAttr)
	}

	stmt = `SELECT case_id, position, npc_id, name, role, personality, motive, alibi
FROM npcs
WHERE case_id = ?
ORDER BY position`
	if err = r.db.ReadOnly.SelectContext(ctx, &npcs, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "select npcs", caseAttr)
	}

	stmt = `SELECT case_id, position, clue_id, description, location_hint, relates_to
FROM clues
WHERE case_id = ?
ORDER BY position`
	if err = r.db.ReadOnly.SelectContext(ctx, &clues, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "select clues", caseAttr)
	}

	stmt = `SELECT case_id, kind, subject_id, reference FROM reference_issues WHERE case_id = ? ORDER BY id`
	if err = r.db.ReadOnly.SelectContext(ctx, &issues, stmt, caseID); err != nil {
		return nil, errors.Wrap(err, "select reference issues", caseAttr)
	}

	return fromRows(row, npcs, clues, issues)
}

// List returns summaries of all stored cases, newest first.
func (r *CaseRepository) List(ctx context.Context) ([]models.CaseSummary, error) {
	var (
		err  error
		rows []caseRow
	)
	stmt := `SELECT id, theme, crime, victim, location, created FROM cases ORDER BY created DESC, id`
	if err = r.db.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "select cases")
	}
	summaries := make([]models.CaseSummary, 0, len(rows))
	for _, row := range rows {
		var created time.Time
		if created, err = time.Parse(time.RFC3339Nano, row.Created); err != nil {
			return nil, errors.Wrap(err, "parse created", slog.String("case_id", row.ID))
		}
		summaries = append(summaries, models.CaseSummary{
			CaseID:   row.ID,
			Theme:    row.Theme,
			Crime:    row.Crime,
			Victim:   row.Victim,
			Location: row.Location,
			Created:  created,
		})
	}
	return summaries, nil
}

func toCaseRow(generated *models.GeneratedCase) (caseRow, error) {
	stageFailures, err := json.Marshal(nonNil(generated.StageFailures))
	if err != nil {
		return caseRow{}, errors.Wrap(err, "marshal stage failures")
	}
	row := caseRow{
		ID:            generated.Case.CaseID,
		Theme:         generated.Theme,
		Crime:         generated.Case.Crime,
		Victim:        generated.Case.Victim,
		Location:      generated.Case.Location,
		Solution:      generated.Case.Solution,
		Briefing:      generated.Briefing,
		Consistent:    sql.NullInt64{},
		ReviewNotes:   "",
		StageFailures: string(stageFailures),
		Created:       generated.Created.UTC().Format(timeFormat),
	}
	if review := generated.Review; review != nil {
		row.Consistent = sql.NullInt64{Int64: 0, Valid: true}
		if review.Consistent {
			row.Consistent.Int64 = 1
		}
		row.ReviewNotes = review.Notes
	}
	return row, nil
}

func fromRows(
	row caseRow,
	npcs []npcRow,
	clues []clueRow,
	issues []referenceIssueRow,
) (*models.GeneratedCase, error) {
	var err error
	generated := models.GeneratedCase{
		Case: models.Case{
			CaseID:   row.ID,
			Crime:    row.Crime,
			Victim:   row.Victim,
			Location: row.Location,
			NPCs:     make([]models.NPC, 0, len(npcs)),
			Clues:    make([]models.Clue, 0, len(clues)),
			Solution: row.Solution,
		},
		Theme:           row.Theme,
		Briefing:        row.Briefing,
		Review:          nil,
		ReferenceIssues: make([]models.ReferenceIssue, 0, len(issues)),
		StageFailures:   nil,
		Created:         time.Time{},
	}
	if generated.Created, err = time.Parse(time.RFC3339Nano, row.Created); err != nil {
		return nil, errors.Wrap(err, "parse created")
	}
	if err = json.Unmarshal([]byte(row.StageFailures), &generated.StageFailures); err != nil {
		return nil, errors.Wrap(err, "unmarshal stage failures")
	}
	if len(generated.StageFailures) == 0 {
		generated.StageFailures = nil
	}
	if row.Consistent.Valid {
		generated.Review = &models.Review{Consistent: row.Consistent.Int64 == 1, Notes: row.ReviewNotes}
	}
	for _, npc := range npcs {
		generated.Case.NPCs = append(generated.Case.NPCs, models.NPC{
			ID:          npc.NPCID,
			Name:        npc.Name,
			Role:        npc.Role,
			Personality: npc.Personality,
			Motive:      npc.Motive,
			Alibi:       npc.Alibi,
		})
	}
	for _, clue := range clues {
		relatesTo := []string{}
		if err = json.Unmarshal([]byte(clue.RelatesTo), &relatesTo); err != nil {
			return nil, errors.Wrap(err, "unmarshal relates_to", slog.String("clue_id", clue.ClueID))
		}
		generated.Case.Clues = append(generated.Case.Clues, models.Clue{
			ID:           clue.ClueID,
			Description:  clue.Description,
			RelatesTo:    relatesTo,
			LocationHint: clue.LocationHint,
		})
	}
	for _, issue := range issues {
		generated.ReferenceIssues = append(generated.ReferenceIssues, models.ReferenceIssue{
			Kind:      models.ReferenceIssueKind(issue.Kind),
			SubjectID: issue.SubjectID,
			Reference: issue.Reference,
		})
	}
	return &generated, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
