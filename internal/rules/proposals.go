// Package rules manages the rule corpus and the pending proposal document
// produced by the learning pass. Proposals are human-gated: nothing here
// mutates rule text until an entry is explicitly confirmed.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/ai"
)

// Refinement proposes replacing an existing rule line with new text.
type Refinement struct {
	ID       string `json:"id"`
	Original string `json:"original"`
	Rule     string `json:"rule"`
	Reason   string `json:"reason"`
}

// NewRule proposes appending a rule line.
type NewRule struct {
	ID     string `json:"id"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// ProposalDocument is the pending, reviewable output of one learning pass.
type ProposalDocument struct {
	Refinements []Refinement `json:"refinements"`
	NewRules    []NewRule    `json:"new_rules"`
}

const fallbackReason = "Generated from plain text output"

// FromModelOutput parses the raw learning response. Invalid JSON falls
// back to wrapping every non-blank line as a new-rule entry, so a model
// that ignores the format instructions still produces reviewable output.
// Every entry gets a fresh identifier.
func FromModelOutput(raw string) *ProposalDocument {
	cleaned := ai.StripFences(raw)

	doc := &ProposalDocument{}
	if err := json.Unmarshal([]byte(cleaned), doc); err != nil {
		doc = &ProposalDocument{}
		for _, line := range strings.Split(cleaned, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				doc.NewRules = append(doc.NewRules, NewRule{Rule: line, Reason: fallbackReason})
			}
		}
	}
	if doc.Refinements == nil {
		doc.Refinements = []Refinement{}
	}
	if doc.NewRules == nil {
		doc.NewRules = []NewRule{}
	}
	for i := range doc.Refinements {
		doc.Refinements[i].ID = uuid.NewString()
	}
	for i := range doc.NewRules {
		doc.NewRules[i].ID = uuid.NewString()
	}
	return doc
}

func ParseDocument(raw string) (*ProposalDocument, error) {
	doc := &ProposalDocument{}
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		return nil, fmt.Errorf("parse proposal document: %w", err)
	}
	return doc, nil
}

func (d *ProposalDocument) Marshal() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal proposal document: %w", err)
	}
	return string(b), nil
}

// Empty reports whether both lists have been consumed.
func (d *ProposalDocument) Empty() bool {
	return len(d.Refinements) == 0 && len(d.NewRules) == 0
}

// ListKind selects which proposal list an apply call targets.
type ListKind string

const (
	ListRefinement ListKind = "refinement"
	ListNew        ListKind = "new"
)

// Action is the reviewer's verdict on one entry.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDecline Action = "decline"
)

// Apply resolves one proposal entry against the rule corpus. A confirmed
// refinement replaces the original text if present verbatim, otherwise its
// replacement is appended so a confirmation is never silently dropped. A
// confirmed new rule is appended. The entry is removed from its list on
// either verdict. The updated corpus is returned.
func (d *ProposalDocument) Apply(id string, kind ListKind, action Action, corpus string) (string, error) {
	switch kind {
	case ListRefinement:
		for i, ref := range d.Refinements {
			if ref.ID != id {
				continue
			}
			d.Refinements = append(d.Refinements[:i], d.Refinements[i+1:]...)
			if action != ActionConfirm {
				return corpus, nil
			}
			if ref.Original != "" && strings.Contains(corpus, ref.Original) {
				return strings.Replace(corpus, ref.Original, ref.Rule, 1), nil
			}
			return appendLine(corpus, ref.Rule), nil
		}
	case ListNew:
		for i, nr := range d.NewRules {
			if nr.ID != id {
				continue
			}
			d.NewRules = append(d.NewRules[:i], d.NewRules[i+1:]...)
			if action != ActionConfirm {
				return corpus, nil
			}
			return appendLine(corpus, nr.Rule), nil
		}
	default:
		return corpus, fmt.Errorf("unknown proposal list %q", kind)
	}
	return corpus, fmt.Errorf("proposal %s not found in %s list", id, kind)
}

func appendLine(corpus, line string) string {
	if corpus == "" {
		return line
	}
	return strings.TrimRight(corpus, "\n") + "\n" + line
}
