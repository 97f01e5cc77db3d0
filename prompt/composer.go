// Package prompt composes the role-tagged message sets sent to model
// providers: persona selection, session parameterization, the mandatory web
// data block, the explicit no-current-data block, and the stricter forced
// prompt used for the single regeneration pass.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/search"
)

const (
	webDataHeader = "=== MANDATORY WEB DATA (LIVE) ==="
	webDataFooter = "=== END WEB DATA ==="

	// noCurrentData is appended when search was wanted but produced nothing.
	// Telling the model it has no live data is what prevents hallucinated
	// freshness claims.
	noCurrentData = `IMPORTANT: No current web data is available for this request.
You must say explicitly that you have no access to current data.
Do not claim recency, cite recent figures, or invent sources.
Answer only from general knowledge and label it as such.`
)

// ComposeRequest carries everything the composer needs for one attempt.
type ComposeRequest struct {
	AgentType          agent.Type
	Message            string
	CurrentPage        string
	Session            agent.SessionContext
	CustomSystemPrompt string
	// SearchWanted is the evaluated tripartite predicate; with no Evidence it
	// triggers the explicit no-current-data branch.
	SearchWanted bool
	Evidence     *search.EvidenceBundle
}

// Composer builds prompt sets. Stateless apart from the injected clock, which
// exists so tests can pin the date used in grounding instructions.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// NewComposerWithClock creates a Composer with a fixed clock; for tests.
func NewComposerWithClock(now func() time.Time) *Composer {
	return &Composer{now: now}
}

// Build produces a fresh PromptSet for one generation attempt. A retry gets a
// new set; callers retain the original only for logging.
func (c *Composer) Build(req ComposeRequest) ([]*message.Message, error) {
	system, err := c.systemPrompt(req)
	if err != nil {
		return nil, err
	}

	user := strings.TrimSpace(req.Message)
	if req.CurrentPage != "" {
		user = fmt.Sprintf("[User is on page: %s]\n%s", req.CurrentPage, user)
	}

	return []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, user),
	}, nil
}

// BuildForced produces the evidence-constrained prompt for the single
// regeneration pass: persona instructions are dropped, the evidence is
// repeated verbatim, and the model may use nothing else.
func (c *Composer) BuildForced(question string, evidence *search.EvidenceBundle) []*message.Message {
	date := c.now().Format("January 2, 2006")

	var sb strings.Builder
	sb.WriteString("You must answer using EXCLUSIVELY the web data below.\n")
	sb.WriteString("Rules:\n")
	fmt.Fprintf(&sb, "1. Open the answer with \"As of %s\".\n", date)
	sb.WriteString("2. Cite the listed sources verbatim when you use their data.\n")
	sb.WriteString("3. Do not draw on general or background knowledge.\n")
	sb.WriteString("4. If the data does not answer the question, say exactly that.\n")

	var ub strings.Builder
	ub.WriteString(webDataHeader)
	ub.WriteString("\n")
	ub.WriteString(evidence.Content)
	if len(evidence.Sources) > 0 {
		ub.WriteString("\nSources: ")
		ub.WriteString(strings.Join(evidence.Sources, ", "))
	}
	ub.WriteString("\n")
	ub.WriteString(webDataFooter)
	ub.WriteString("\n\nQuestion: ")
	ub.WriteString(strings.TrimSpace(question))

	return []*message.Message{
		message.NewMessage(message.RoleSystem, sb.String()),
		message.NewMessage(message.RoleUser, ub.String()),
	}
}

func (c *Composer) systemPrompt(req ComposeRequest) (string, error) {
	var base string
	if req.CustomSystemPrompt != "" {
		// Caller-controlled agents bypass the template catalog entirely.
		base = req.CustomSystemPrompt
	} else {
		rendered, err := personaFor(req.AgentType).Render(sessionVars(req.Session))
		if err != nil {
			return "", fmt.Errorf("persona render failed: %w", err)
		}
		base = collapseBlankLines(rendered)
	}

	switch {
	case req.Evidence != nil:
		return base + "\n\n" + evidenceBlock(req.Evidence, c.now()), nil
	case req.SearchWanted:
		return base + "\n\n" + noCurrentData, nil
	default:
		return base, nil
	}
}

func evidenceBlock(ev *search.EvidenceBundle, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(webDataHeader)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Retrieved %s via %s (confidence %d/100).\n\n", ev.Timestamp.Format(time.RFC3339), ev.Engine, ev.Confidence)
	sb.WriteString(ev.Content)
	sb.WriteString("\n")
	if len(ev.Sources) > 0 {
		sb.WriteString("Sources: ")
		sb.WriteString(strings.Join(ev.Sources, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString(webDataFooter)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "You MUST ground your answer in the web data above, cite its sources, and anchor statements to the current date (%s).", now.Format("January 2, 2006"))
	return sb.String()
}

// collapseBlankLines removes the empty lines template conditionals leave
// behind when session fields are absent.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
