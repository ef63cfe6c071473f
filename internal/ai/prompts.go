package ai

import (
	"encoding/json"
	"fmt"
)

// Exemplar is one kept or deleted item serialized for the learning prompt.
// Status distinguishes an explicit Keep from a watch-history rescue so the
// model can weigh them differently.
type Exemplar struct {
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Overview string `json:"overview"`
	Labels   string `json:"labels"`
	Status   string `json:"status"`
}

// Candidate is one unscored item serialized for the scoring prompt. ID is
// the local database id; the response keys echo it back.
type Candidate struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Overview string `json:"overview"`
	Labels   string `json:"labels"`
}

func buildLearningPrompt(kept, deleted []Exemplar, currentRules string) (string, error) {
	keptJSON, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal kept exemplars: %w", err)
	}
	deletedJSON, err := json.MarshalIndent(deleted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal deleted exemplars: %w", err)
	}

	return fmt.Sprintf(`You are an expert media curator. Analyze the user's library to understand their taste.

Here are items the user explicitly KEPT:
%s

Here are items the user explicitly DELETED:
%s

Current Rules (if any):
%s

Based on this data, propose updates to the scoring rules that capture the user's preferences.
Focus on genres, years, themes, keywords in overviews, and ratings.
Return a JSON object with two lists:
"refinements": [{"original": "<existing rule text to replace>", "rule": "<replacement text>", "reason": "<why>"}]
"new_rules": [{"rule": "<new rule text>", "reason": "<why>"}]
Do not include markdown formatting like %s. Just the raw JSON string.`,
		keptJSON, deletedJSON, currentRules, "```json"), nil
}

func buildScoringPrompt(items []Candidate, rules string) (string, error) {
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	return fmt.Sprintf(`You are an expert media curator. Score the following items based on these rules:

RULES:
%s

ITEMS TO SCORE:
%s

For each item, assign a score from 0 to 100, where 0 is a definite delete and 100 is a definite keep.
Return the result as a JSON object where the keys are the item IDs and the values are the integer scores.
Example format: { "123": 85, "456": 10 }
Do not include markdown formatting like %s. Just the raw JSON string.`,
		rules, itemsJSON, "```json"), nil
}
