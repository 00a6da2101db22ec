package action

import (
	"testing"

	"github.com/pario-ai/quill/pkg/models"
)

func TestPostProcessSummarize(t *testing.T) {
	raw := "The article explains caching.\nIt covers eviction.\n\nKey points:\n- TTL expiry\n* bounded size\n1. hit rate"
	res := postProcess(models.ActionSummarize, raw, nil, ResultMeta{}).(SummarizeResult)

	if res.Summary != "The article explains caching. It covers eviction." {
		t.Errorf("unexpected summary: %q", res.Summary)
	}
	if len(res.KeyPoints) != 3 || res.KeyPoints[2] != "hit rate" {
		t.Errorf("unexpected key points: %v", res.KeyPoints)
	}
}

func TestPostProcessSummarizeOnlyBullets(t *testing.T) {
	raw := "- one\n- two"
	res := postProcess(models.ActionSummarize, raw, nil, ResultMeta{}).(SummarizeResult)
	if res.Summary != raw {
		t.Errorf("summary should fall back to the full text, got %q", res.Summary)
	}
}

func TestPostProcessIdeate(t *testing.T) {
	res := postProcess(models.ActionIdeate, "Ideas:\n1) build a kite\n2. paint a fence", nil, ResultMeta{}).(IdeateResult)
	if len(res.Ideas) != 2 || res.Ideas[0] != "build a kite" {
		t.Errorf("unexpected ideas: %v", res.Ideas)
	}

	plain := postProcess(models.ActionIdeate, "first idea\nsecond idea", nil, ResultMeta{}).(IdeateResult)
	if len(plain.Ideas) != 2 {
		t.Errorf("plain lines should become ideas: %v", plain.Ideas)
	}
}

func TestPostProcessProofread(t *testing.T) {
	raw := "The quick brown fox.\n\nChanges:\n- teh -> the\n- fxo -> fox"
	res := postProcess(models.ActionProofread, raw, nil, ResultMeta{}).(ProofreadResult)
	if res.Corrected != "The quick brown fox." {
		t.Errorf("unexpected corrected text: %q", res.Corrected)
	}
	if len(res.Changes) != 2 || res.Changes[0] != "teh -> the" {
		t.Errorf("unexpected changes: %v", res.Changes)
	}

	none := postProcess(models.ActionProofread, "Already correct.", nil, ResultMeta{}).(ProofreadResult)
	if none.Corrected != "Already correct." || none.Changes == nil || len(none.Changes) != 0 {
		t.Errorf("unexpected result without changes: %+v", none)
	}
}

func TestPostProcessRewriteCarriesMeta(t *testing.T) {
	meta := ResultMeta{Provider: "claude", Model: "haiku", Cached: true}
	res := postProcess(models.ActionRewrite, " Polished. ", map[string]any{"style": "formal"}, meta).(RewriteResult)
	if res.Rewritten != "Polished." || res.Style != "formal" || res.ResultMeta != meta {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestListItem(t *testing.T) {
	tests := []struct {
		line string
		item string
		ok   bool
	}{
		{"- dash", "dash", true},
		{"  * star", "star", true},
		{"• dot", "dot", true},
		{"12. twelve", "twelve", true},
		{"3) three", "three", true},
		{"2026 was a year", "", false},
		{"plain", "", false},
	}
	for _, tt := range tests {
		item, ok := listItem(tt.line)
		if item != tt.item || ok != tt.ok {
			t.Errorf("listItem(%q) = %q, %v", tt.line, item, ok)
		}
	}
}
