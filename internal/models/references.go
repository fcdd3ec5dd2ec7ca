package models

// ReferenceIssueKind classifies a broken cross-reference inside a case.
type ReferenceIssueKind string

const (
	ReferenceIssueUnknownNPC      ReferenceIssueKind = "unknown_npc"
	ReferenceIssueDuplicateNPCID  ReferenceIssueKind = "duplicate_npc_id"
	ReferenceIssueDuplicateClueID ReferenceIssueKind = "duplicate_clue_id"
)

// ReferenceIssue reports a cross-reference problem that [Validate] does not catch.
type ReferenceIssue struct {
	Kind ReferenceIssueKind `json:"kind"`
	// SubjectID is the id of the clue or NPC the issue was found on.
	SubjectID string `json:"subject_id"`
	// Reference is the offending id, e.g. the missing NPC id a clue relates to.
	Reference string `json:"reference"`
}

// CheckReferences reports clues relating to unknown NPCs and duplicate NPC or clue ids.
// An empty result means the case is referentially consistent.
func CheckReferences(c *Case) []ReferenceIssue {
	issues := []ReferenceIssue{}

	npcIDs := make(map[string]struct{}, len(c.NPCs))
	for _, npc := range c.NPCs {
		if _, dup := npcIDs[npc.ID]; dup {
			issues = append(issues, ReferenceIssue{Kind: ReferenceIssueDuplicateNPCID, SubjectID: npc.ID, Reference: npc.ID})
			continue
		}
		npcIDs[npc.ID] = struct{}{}
	}

	clueIDs := make(map[string]struct{}, len(c.Clues))
	for _, clue := range c.Clues {
		if _, dup := clueIDs[clue.ID]; dup {
			issues = append(issues, ReferenceIssue{
				Kind: ReferenceIssueDuplicateClueID, SubjectID: clue.ID, Reference: clue.ID,
			})
		}
		clueIDs[clue.ID] = struct{}{}
		for _, ref := range clue.RelatesTo {
			if _, ok := npcIDs[ref]; !ok {
				issues = append(issues, ReferenceIssue{Kind: ReferenceIssueUnknownNPC, SubjectID: clue.ID, Reference: ref})
			}
		}
	}

	return issues
}
