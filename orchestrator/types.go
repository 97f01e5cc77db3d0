package orchestrator

import (
	"strings"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/errors"
)

// FunctionName is the billing function every request in this pipeline
// reserves credits against.
const FunctionName = "generate_response"

// Context quality tags carried in the response metadata.
const (
	QualityElite    = "elite"
	QualityStandard = "standard"
)

// Request is the JSON body of one orchestration call. UserID comes from the
// gateway's authentication layer, never from the body.
type Request struct {
	UserID string `json:"-"`

	Message     string               `json:"message"`
	AgentType   string               `json:"agentType"`
	CurrentPage string               `json:"currentPage,omitempty"`
	Session     agent.SessionContext `json:"sessionConfig,omitempty"`

	SearchEnabled bool   `json:"searchEnabled,omitempty"`
	UseTripartite bool   `json:"useTripartiteFlow,omitempty"`
	SystemPrompt  string `json:"systemPrompt,omitempty"`
	Model         string `json:"model,omitempty"`
}

// validate checks the request surface before any billable work starts.
func (r *Request) validate() (agent.Type, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return 0, &errors.InvalidInputError{Field: "userId", Reason: "missing"}
	}
	if strings.TrimSpace(r.Message) == "" {
		return 0, &errors.InvalidInputError{Field: "message", Reason: "empty"}
	}
	t, err := agent.Parse(r.AgentType)
	if err != nil {
		return 0, &errors.InvalidInputError{Field: "agentType", Reason: err.Error()}
	}
	return t, nil
}

// Result is the JSON response of a finalized request.
type Result struct {
	Response        string   `json:"response"`
	Model           string   `json:"model"`
	TokensUsed      int      `json:"tokensUsed"`
	Cost            string   `json:"cost"`
	HasWebData      bool     `json:"hasWebData"`
	WebSources      []string `json:"webSources"`
	ValidationScore int      `json:"validationScore"`
	SearchEngine    string   `json:"searchEngine,omitempty"`
	ContextQuality  string   `json:"contextQuality"`
}

// HTTPStatus maps a pipeline error to the status the gateway should answer
// with: 429 for budget denial, 400 for malformed requests, 500 otherwise.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, errors.ErrBudgetExceeded):
		return 429
	case errors.Is(err, errors.ErrInvalidInput):
		return 400
	default:
		return 500
	}
}
