package orchestrator

import (
	"context"
	"log/slog"

	"github.com/competeiq/tripartite/pkg/logging"
	"github.com/competeiq/tripartite/prompt"
	"github.com/competeiq/tripartite/provider"
	"github.com/competeiq/tripartite/search"
	"github.com/competeiq/tripartite/validate"
)

// RegenerationController runs the single forced pass after a grounding
// failure. It builds an evidence-only prompt, invokes the model exactly once,
// and re-scores the forced answer. There is no second regeneration: a forced
// answer that still fails validation is returned anyway and the caller tags
// it low-confidence.
type RegenerationController struct {
	composer  *prompt.Composer
	invoker   provider.Invoker
	validator *validate.Validator
	logger    *slog.Logger
}

// NewRegenerationController wires the controller.
func NewRegenerationController(composer *prompt.Composer, invoker provider.Invoker, validator *validate.Validator) *RegenerationController {
	return &RegenerationController{
		composer:  composer,
		invoker:   invoker,
		validator: validator,
		logger:    logging.WithComponent("regeneration"),
	}
}

// ForceRegenerate makes the one forced attempt and scores it. The returned
// score describes the forced answer, passed or not.
func (rc *RegenerationController) ForceRegenerate(ctx context.Context, question string, evidence *search.EvidenceBundle, model string) (*provider.Response, validate.Score, error) {
	msgs := rc.composer.BuildForced(question, evidence)

	resp, err := rc.invoker.Invoke(ctx, msgs, model)
	if err != nil {
		return nil, validate.Score{}, err
	}

	score := rc.validator.Score(resp.Text, evidence)
	if !score.Passed {
		rc.logger.Warn("forced regeneration still ungrounded",
			"model", model,
			"score", score.Score,
			"issues", score.Issues,
		)
	}
	return resp, score, nil
}
