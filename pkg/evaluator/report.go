package evaluator

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/assessment-platform/enginer/pkg/report"
	"github.com/assessment-platform/enginer/pkg/retry"
)

// SynthesizeReport satisfies report.Synthesizer. It sends the full set of
// graded outcomes for one run and parses back the worker's structured
// report; turn sequencing (analysis, then recommendations) happens inside
// the worker, mirroring the two-turn scoring/missing-tools pattern, since
// this client only ever sees the final aggregated response.
func (c *Client) SynthesizeReport(ctx context.Context, req report.Request) (report.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	payload, err := reportRequestToStruct(req)
	if err != nil {
		return report.Result{}, err
	}

	var resp *structpb.Struct
	err = retry.Do(ctx, c.retryer, func(ctx context.Context) error {
		var rpcErr error
		resp, rpcErr = c.rpc.SynthesizeReport(ctx, payload)
		return rpcErr
	})
	if err != nil {
		return report.Result{}, fmt.Errorf("evaluator: synthesize report: %w", err)
	}

	return parseReportResponse(resp), nil
}

func reportRequestToStruct(req report.Request) (*structpb.Struct, error) {
	outcomes := make([]interface{}, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		outcomes = append(outcomes, map[string]interface{}{
			"question_id":    o.QuestionID,
			"topic":          o.Topic,
			"stem":           o.Stem,
			"method":         o.Method,
			"max_points":     o.MaxPoints,
			"points_awarded": o.PointsAwarded,
			"feedback":       o.Feedback,
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"submission_id": req.SubmissionID,
		"run_sequence":  req.RunSequence,
		"total_awarded": req.TotalAwarded,
		"total_max":     req.TotalMax,
		"percentage":    req.Percentage,
		"outcomes":      outcomes,
	})
}

func parseReportResponse(resp *structpb.Struct) report.Result {
	if resp == nil {
		return report.Result{}
	}
	fields := resp.GetFields()

	var strengths, weaknesses, nextSteps []string
	for _, v := range fields["strengths"].GetListValue().GetValues() {
		strengths = append(strengths, v.GetStringValue())
	}
	for _, v := range fields["weaknesses"].GetListValue().GetValues() {
		weaknesses = append(weaknesses, v.GetStringValue())
	}
	for _, v := range fields["next_steps"].GetListValue().GetValues() {
		nextSteps = append(nextSteps, v.GetStringValue())
	}

	var perQuestion []map[string]interface{}
	for _, v := range fields["per_question"].GetListValue().GetValues() {
		if s := v.GetStructValue(); s != nil {
			perQuestion = append(perQuestion, s.AsMap())
		}
	}

	return report.Result{
		Summary:     fields["summary"].GetStringValue(),
		Strengths:   strengths,
		Weaknesses:  weaknesses,
		PerQuestion: perQuestion,
		NextSteps:   nextSteps,
	}
}
