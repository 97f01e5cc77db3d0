package tokenizer

import (
	"testing"

	"github.com/competeiq/tripartite/message"
)

func TestHeuristicCount(t *testing.T) {
	h := Heuristic{}

	if got := h.Count(""); got != 0 {
		t.Errorf("Expected 0 tokens for empty text, got %d", got)
	}
	if got := h.Count("   "); got != 0 {
		t.Errorf("Expected 0 tokens for whitespace, got %d", got)
	}

	// 5 words, 34 chars: chars/4 = 8 wins over word count.
	text := "competitive intelligence is great stuff"
	if got := h.Count(text); got < 5 {
		t.Errorf("Expected at least word-count tokens, got %d", got)
	}
}

func TestHeuristicCountMessages(t *testing.T) {
	h := Heuristic{}
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, "you are a mentor"),
		message.NewMessage(message.RoleUser, "hello"),
	}

	total := h.CountMessages(msgs)
	if total != h.Count("you are a mentor")+h.Count("hello") {
		t.Errorf("Expected sum of per-message counts, got %d", total)
	}
}
