package repositories_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/myrjola/casefile/internal/models"
	"github.com/myrjola/casefile/internal/sqlite"
	"github.com/myrjola/casefile/internal/testhelpers"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			t.Error(err)
		}
	})
	return db
}

// newBenchmarkDB creates a file backed database for benchmarking purposes.
func newBenchmarkDB(b *testing.B) *sqlite.Database {
	b.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	url := filepath.Join(b.TempDir(), "benchmark.sqlite")
	db, err := sqlite.NewDatabase(ctx, url, testhelpers.NewLogger(io.Discard))
	if err != nil {
		cancel()
		b.Fatal(err)
	}
	b.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			b.Error(err)
		}
	})
	return db
}

// rueMorgue returns a fresh copy of a small generated case.
func rueMorgue(caseID string, created time.Time) *models.GeneratedCase {
	return &models.GeneratedCase{
		Case: models.Case{
			CaseID:   caseID,
			Crime:    "double murder",
			Victim:   "Madame L'Espanaye",
			Location: "Rue Morgue, Paris",
			NPCs: []models.NPC{
				{
					ID:          "le-bon",
					Name:        "Adolphe Le Bon",
					Role:        "bank clerk",
					Personality: "nervous",
					Motive:      "none apparent",
					Alibi:       "delivered gold the day before",
				},
				{
					ID:          "sailor",
					Name:        "The Maltese Sailor",
					Role:        "owner of the orangutan",
					Personality: "guilty",
					Motive:      "recover his animal",
					Alibi:       "",
				},
			},
			Clues: []models.Clue{
				{
					ID:           "hair",
					Description:  "tuft of tawny hair",
					RelatesTo:    []string{"sailor"},
					LocationHint: "clutched in the victim's hand",
				},
				{
					ID:           "gold",
					Description:  "bags of gold left untouched",
					RelatesTo:    []string{"le-bon", "nobody"},
					LocationHint: "on the floor",
				},
				{
					ID:           "window",
					Description:  "nailed window that opens by a hidden spring",
					RelatesTo:    []string{},
					LocationHint: "back room",
				},
			},
			Solution: "An escaped orangutan committed the murders.",
		},
		Theme:    "Paris 1841",
		Briefing: "Two women are dead in a locked room.",
		Review:   &models.Review{Consistent: true, Notes: "The hair points to the animal."},
		ReferenceIssues: []models.ReferenceIssue{
			{Kind: models.ReferenceIssueUnknownNPC, SubjectID: "gold", Reference: "nobody"},
		},
		StageFailures: nil,
		Created:       created,
	}
}
