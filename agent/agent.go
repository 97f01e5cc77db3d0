package agent

import (
	"fmt"
	"strings"
)

// Type is the closed set of assistant personas the pipeline can serve. Each
// variant carries its own prompt template and search eligibility; selection is
// an exhaustive switch rather than a string-keyed lookup.
type Type int

const (
	// Mentor is the general career/business mentor persona.
	Mentor Type = iota
	// CompetitorDiscovery identifies competitors in a market segment.
	CompetitorDiscovery
	// CompetitiveRetriever gathers factual intelligence about named competitors.
	CompetitiveRetriever
	// CompetitiveAnalyst interprets gathered intelligence into strategy.
	CompetitiveAnalyst
	// ResearchEngine runs open-ended research requests.
	ResearchEngine
	// ContentGenerator produces long-form content backed by research.
	ContentGenerator
)

// Wire identifiers accepted on the JSON surface.
const (
	wireMentor               = "clipogino"
	wireCompetitorDiscovery  = "cdv"
	wireCompetitiveRetriever = "cir"
	wireCompetitiveAnalyst   = "cia"
	wireResearchEngine       = "research-engine"
	wireContentGenerator     = "enhanced-content-generator"
)

// Parse converts a wire identifier into a Type. Canonical names are accepted
// alongside the short identifiers carried by the gateway.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case wireMentor, "mentor":
		return Mentor, nil
	case wireCompetitorDiscovery, "competitor-discovery":
		return CompetitorDiscovery, nil
	case wireCompetitiveRetriever, "competitive-retriever":
		return CompetitiveRetriever, nil
	case wireCompetitiveAnalyst, "competitive-analyst":
		return CompetitiveAnalyst, nil
	case wireResearchEngine:
		return ResearchEngine, nil
	case wireContentGenerator, "content-generator":
		return ContentGenerator, nil
	default:
		return Mentor, fmt.Errorf("unknown agent type %q", s)
	}
}

// String returns the wire identifier for the type.
func (t Type) String() string {
	switch t {
	case Mentor:
		return wireMentor
	case CompetitorDiscovery:
		return wireCompetitorDiscovery
	case CompetitiveRetriever:
		return wireCompetitiveRetriever
	case CompetitiveAnalyst:
		return wireCompetitiveAnalyst
	case ResearchEngine:
		return wireResearchEngine
	case ContentGenerator:
		return wireContentGenerator
	default:
		return fmt.Sprintf("agent(%d)", int(t))
	}
}

// SearchMandatory reports whether the persona always runs the search branch,
// regardless of the caller's searchEnabled flag.
func (t Type) SearchMandatory() bool {
	switch t {
	case ResearchEngine, ContentGenerator:
		return true
	case Mentor, CompetitorDiscovery, CompetitiveRetriever, CompetitiveAnalyst:
		return false
	default:
		return false
	}
}

// SearchCapable reports whether the persona may run the search branch when the
// caller opts in with searchEnabled.
func (t Type) SearchCapable() bool {
	switch t {
	case CompetitorDiscovery, CompetitiveRetriever, CompetitiveAnalyst:
		return true
	case Mentor, ResearchEngine, ContentGenerator:
		return false
	default:
		return false
	}
}

// UseSearch is the tripartite-flow predicate: a pure function of the request
// that decides whether live evidence is fetched before generation. Evaluated
// exactly once per request by the orchestrator.
func UseSearch(t Type, searchEnabled, forceTripartite bool) bool {
	if forceTripartite {
		return true
	}
	if t.SearchMandatory() {
		return true
	}
	return searchEnabled && t.SearchCapable()
}

// SessionContext carries the caller-supplied business context used to
// parameterize prompts and search queries.
type SessionContext struct {
	CompanyName   string `json:"companyName,omitempty"`
	Industry      string `json:"industry,omitempty"`
	AnalysisFocus string `json:"analysisFocus,omitempty"`
	Objectives    string `json:"objectives,omitempty"`
}

// Empty reports whether no context fields are set.
func (s SessionContext) Empty() bool {
	return s.CompanyName == "" && s.Industry == "" && s.AnalysisFocus == "" && s.Objectives == ""
}
