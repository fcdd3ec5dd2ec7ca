package models

// NPC is a non-player character taking part in a case.
type NPC struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Personality string `json:"personality"`
	Motive      string `json:"motive"`
	Alibi       string `json:"alibi"`
}

// Clue is a discoverable fact linking to one or more NPCs of the same case.
type Clue struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	RelatesTo    []string `json:"relates_to"`
	LocationHint string   `json:"location_hint"`
}

// Case is a complete generated mystery. It's produced wholesale by [Validate] and not modified afterwards.
type Case struct {
	CaseID   string `json:"case_id"`
	Crime    string `json:"crime"`
	Victim   string `json:"victim"`
	Location string `json:"location"`
	NPCs     []NPC  `json:"npcs"`
	Clues    []Clue `json:"clues"`
	Solution string `json:"solution"`
}

// NPC returns the NPC with the given id.
func (c *Case) NPC(id string) (NPC, bool) {
	for _, npc := range c.NPCs {
		if npc.ID == id {
			return npc, true
		}
	}
	return NPC{}, false
}

// Clue returns the clue with the given id.
func (c *Case) Clue(id string) (Clue, bool) {
	for _, clue := range c.Clues {
		if clue.ID == id {
			return clue, true
		}
	}
	return Clue{}, false
}
