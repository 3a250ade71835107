package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EvaluationRecord holds the schema definition for a single scoring pass
// over a submission. Records are append-only per submission: a rescore
// creates a new row at run_sequence+1 rather than mutating the prior one.
// The answer_key/rubric actually used to grade each question is snapshotted
// inside results so later catalog edits never retroactively rescore a past
// attempt (see DESIGN.md Open Question 1).
type EvaluationRecord struct {
	ent.Schema
}

// Fields of the EvaluationRecord.
func (EvaluationRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("submission_id").
			Immutable(),
		field.Int("run_sequence").
			Immutable().
			Comment("Starts at 1 for a submission, increments on rescore"),
		field.JSON("results", []map[string]interface{}{}).
			Immutable().
			Comment("Per-question outcomes: question_id, method, max_points, points_awarded, rubric_breakdown, feedback, graded_against"),
		field.Float("total_awarded"),
		field.Float("total_max"),
		field.Float("percentage"),
		field.Enum("status").
			Values("completed", "evaluator_error", "retrying").
			Default("retrying"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the EvaluationRecord.
func (EvaluationRecord) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("submission", Submission.Type).
			Ref("evaluation_records").
			Field("submission_id").
			Unique().
			Required(),
	}
}

// Indexes of the EvaluationRecord.
func (EvaluationRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("submission_id", "run_sequence").
			Unique(),
		index.Fields("status"),
	}
}
