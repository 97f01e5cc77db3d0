package tokenizer

import (
	"strings"

	"github.com/competeiq/tripartite/message"
	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens for a prompt set so credits can be reserved before
// any provider call is made.
type Estimator interface {
	Count(text string) int
	CountMessages(msgs []*message.Message) int
}

// Tiktoken estimates token counts with the BPE encoding used by the target
// model family.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns an estimator for the given model, trying the model
// mapping first and the raw encoding name second.
func NewTiktoken(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessages sums the token counts of all message contents. Role framing
// overhead is small relative to credit granularity and is ignored.
func (t *Tiktoken) CountMessages(msgs []*message.Message) int {
	total := 0
	for _, m := range msgs {
		total += t.Count(m.Text())
	}
	return total
}

// Heuristic approximates token counts without an encoding table. Used when the
// tiktoken vocabulary is unavailable (for example in offline tests).
type Heuristic struct{}

// Count approximates tokens as max(words, chars/4), which tracks BPE output
// closely enough for budget estimation.
func (Heuristic) Count(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text) / 4
	if chars > words {
		return chars
	}
	return words
}

// CountMessages sums the heuristic counts of all message contents.
func (h Heuristic) CountMessages(msgs []*message.Message) int {
	total := 0
	for _, m := range msgs {
		total += h.Count(m.Text())
	}
	return total
}
