package evaluator

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/assessment-platform/enginer/pkg/retry"
	"github.com/assessment-platform/enginer/pkg/scoring"
)

// ScoreRubric satisfies scoring.RubricEvaluator. It sends the answer, the
// question's rubric, and (for code answers) the candidate's most recent
// sandbox execution outcome, then parses the worker's structured response.
// A response that fails to parse into the expected shape is reinforced with
// a stricter re-prompt and retried once before the call counts as failed,
// per the structured-output contract the worker is expected to honor.
func (c *Client) ScoreRubric(ctx context.Context, req scoring.RubricRequest) (scoring.RubricResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	payload, err := rubricRequestToStruct(req, false)
	if err != nil {
		return scoring.RubricResult{}, err
	}

	var resp *structpb.Struct
	err = retry.Do(ctx, c.retryer, func(ctx context.Context) error {
		var rpcErr error
		resp, rpcErr = c.rpc.ScoreRubric(ctx, payload)
		return rpcErr
	})
	if err != nil {
		return scoring.RubricResult{}, fmt.Errorf("evaluator: score rubric: %w", err)
	}

	result, ok := parseRubricResponse(resp)
	if ok {
		return result, nil
	}

	// One reinforced retry: the worker almost certainly mangled structured
	// output rather than the answer being unscoreable, so ask again with an
	// explicit instruction to return only the expected fields.
	strict, err := rubricRequestToStruct(req, true)
	if err != nil {
		return scoring.RubricResult{}, err
	}
	resp, err = c.rpc.ScoreRubric(ctx, strict)
	if err != nil {
		return scoring.RubricResult{}, fmt.Errorf("evaluator: score rubric (reinforced retry): %w", err)
	}
	result, ok = parseRubricResponse(resp)
	if !ok {
		return scoring.RubricResult{}, fmt.Errorf("evaluator: worker returned unparseable rubric response after reinforced retry")
	}
	return result, nil
}

func rubricRequestToStruct(req scoring.RubricRequest, reinforce bool) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"question_id":     req.QuestionID,
		"kind":            req.Kind,
		"stem":            req.Stem,
		"answer":          req.Answer,
		"rubric":          req.Rubric,
		"max_points":      req.MaxPoints,
		"default_weights": weightsToMap(req.DefaultWeights),
	}
	if req.ExecutionOutcome != nil {
		m["execution_outcome"] = map[string]interface{}{
			"stdout":      req.ExecutionOutcome.Stdout,
			"stderr":      req.ExecutionOutcome.Stderr,
			"exit_code":   req.ExecutionOutcome.ExitCode,
			"timed_out":   req.ExecutionOutcome.TimedOut,
			"duration_ms": req.ExecutionOutcome.DurationMs,
		}
	}
	if reinforce {
		m["response_format_reminder"] = "Return ONLY a JSON object with keys points_awarded (number), breakdown (object), feedback (string). No prose, no markdown fences."
	}
	return structpb.NewStruct(m)
}

func weightsToMap(weights map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

func parseRubricResponse(resp *structpb.Struct) (scoring.RubricResult, bool) {
	if resp == nil {
		return scoring.RubricResult{}, false
	}
	fields := resp.GetFields()
	pointsField, ok := fields["points_awarded"]
	if !ok {
		return scoring.RubricResult{}, false
	}
	return scoring.RubricResult{
		PointsAwarded: pointsField.GetNumberValue(),
		Breakdown:     fields["breakdown"].GetStructValue().AsMap(),
		Feedback:      fields["feedback"].GetStringValue(),
	}, true
}
