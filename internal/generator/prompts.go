package generator

import (
	"fmt"
	"strings"

	"github.com/myrjola/casefile/internal/models"
	"github.com/sashabaranov/go-openai"
)

const caseSchema = `{
  "case_id": "string",
  "crime": "string",
  "victim": "string",
  "location": "string",
  "npcs": [
    {"id": "string", "name": "string", "role": "string", "personality": "string", "motive": "string",
     "alibi": "string"}
  ],
  "clues": [
    {"id": "string", "description": "string", "relates_to": ["npc id"], "location_hint": "string"}
  ],
  "solution": "string"
}`

func draftMessages(theme string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a creative mystery writer. Output valid JSON only.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(`Write a mystery case set in "%s".
Return a single JSON object with exactly this structure:
%s

Include at least three NPCs, one of them the culprit, and at least three clues.
Every relates_to entry must be the id of an NPC in the case.
The solution explains who did it and which clues prove it.`, theme, caseSchema),
		},
	}
}

func repairMessages(draft string, issues []models.Issue) []openai.ChatCompletionMessage {
	problems := make([]string, 0, len(issues))
	for _, issue := range issues {
		problems = append(problems, "- "+issue.String())
	}
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You fix JSON documents to match a schema. Output valid JSON only.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(`This mystery case doesn't match the schema.

Schema:
%s

Problems:
%s

Case:
%s

Return the corrected case. Keep the story and change only what the problems require.`,
				caseSchema, strings.Join(problems, "\n"), draft),
		},
	}
}

func reviewMessages(caseJSON string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a meticulous mystery editor. Output valid JSON only.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(`Does the solution of this case follow from its clues and alibis?
Answer with {"consistent": true or false, "notes": "short explanation"}.

%s`, caseJSON),
		},
	}
}

func briefingMessages(caseJSON string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You write briefings for detectives.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(`Write a briefing of at most three sentences introducing the crime, the victim and the
location of this case. Never reveal the solution.

%s`, caseJSON),
		},
	}
}
