package evaluator

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/assessment-platform/enginer/ent/question"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/retry"
)

// Probe satisfies composer.Generator: a cheap liveness check gating any
// live-generation tier work.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	req, err := structpb.NewStruct(nil)
	if err != nil {
		return err
	}
	return retry.Do(ctx, c.retryer, func(ctx context.Context) error {
		_, err := c.rpc.Probe(ctx, req)
		return err
	})
}

// Generate satisfies composer.Generator: it asks the worker for a question
// body, then computes the content embedding locally so every generated
// question is indexed into the same similarity space as curated ones
// regardless of what embedding model (if any) the worker used internally.
func (c *Client) Generate(ctx context.Context, topic string, difficulty question.Difficulty, kind question.Kind) (composer.GeneratedBody, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	req, err := structpb.NewStruct(map[string]interface{}{
		"topic":      topic,
		"difficulty": string(difficulty),
		"kind":       string(kind),
	})
	if err != nil {
		return composer.GeneratedBody{}, err
	}

	var resp *structpb.Struct
	err = retry.Do(ctx, c.retryer, func(ctx context.Context) error {
		var rpcErr error
		resp, rpcErr = c.rpc.GenerateQuestion(ctx, req)
		return rpcErr
	})
	if err != nil {
		return composer.GeneratedBody{}, fmt.Errorf("evaluator: generate question: %w", err)
	}

	fields := resp.GetFields()
	stem := fields["stem"].GetStringValue()
	model := fields["model"].GetStringValue()

	var choices []string
	for _, v := range fields["choices"].GetListValue().GetValues() {
		choices = append(choices, v.GetStringValue())
	}

	answerKey := fields["answer_key"].GetStructValue().AsMap()
	rubric := fields["rubric"].GetStructValue().AsMap()

	embedding, err := c.embed.Embed(ctx, stem)
	if err != nil {
		return composer.GeneratedBody{}, fmt.Errorf("evaluator: embedding generated question: %w", err)
	}

	return composer.GeneratedBody{
		Stem:      stem,
		Choices:   choices,
		AnswerKey: answerKey,
		Rubric:    rubric,
		Embedding: embedding,
		Model:     model,
	}, nil
}
