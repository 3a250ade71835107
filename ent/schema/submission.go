package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Submission holds the schema definition for a candidate's timed attempt.
// This is the Session Manager's state machine container: reserved →
// in_progress → completed | completed_auto_submitted | expired.
type Submission struct {
	ent.Schema
}

// Fields of the Submission.
func (Submission) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("candidate_id"),
		field.String("snapshot_id").
			Immutable(),
		field.String("access_code").
			Unique().
			Comment("Opaque code minted at reserve time, presented by the candidate to start"),
		field.Enum("status").
			Values("reserved", "in_progress", "completed", "completed_auto_submitted", "expired").
			Default("reserved"),
		field.Time("reserved_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable().
			Comment("Set when the candidate first starts; anchors the expiration instant"),
		field.Time("expiration_instant").
			Optional().
			Nillable().
			Comment("started_at + time_limit, server-authoritative"),
		field.Time("grace_deadline").
			Optional().
			Nillable().
			Comment("expiration_instant + grace_period"),
		field.Time("submitted_at").
			Optional().
			Nillable(),
		field.Int("violation_count").
			Default(0),
		field.JSON("answers", map[string]interface{}{}).
			Optional().
			Comment("question_id → Answer tagged variant, keyed by the question's kind"),
		field.Enum("scoring_status").
			Values("not_started", "pending", "in_progress", "completed", "failed").
			Default("not_started"),
		field.String("latest_evaluation_id").
			Optional().
			Nillable().
			Comment("Points at the most recent EvaluationRecord; the Submission never embeds results directly"),
		field.Int("latest_run_sequence").
			Default(0),
		field.Float("total_awarded").
			Optional().
			Nillable(),
		field.Float("total_max").
			Optional().
			Nillable(),
		field.Float("percentage").
			Optional().
			Nillable(),
		field.JSON("detailed_report", map[string]interface{}{}).
			Optional().
			Comment("Report Synthesizer output: {summary, strengths, weaknesses, per_question, next_steps}"),
		field.Bool("dead_letter").
			Default(false).
			Comment("Set when the scoring job exhausted its delivery attempts"),
		field.Bool("auto_submitted").
			Default(false).
			Comment("True when the terminal transition was server-driven, not a candidate-initiated submit"),
		field.String("auto_submit_reason").
			Optional().
			Nillable().
			Comment("time_expired | exceeded_violation_limit; set only when auto_submitted"),
		field.Time("auto_submit_instant").
			Optional().
			Nillable().
			Comment("Server clock reading at the moment auto-submit fired"),
		field.Int("version").
			Default(0).
			Comment("Optimistic-concurrency counter backing the facade ETag"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Submission.
func (Submission) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("evaluation_records", EvaluationRecord.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("code_execution_logs", CodeExecutionLog.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Submission.
func (Submission) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("candidate_id"),
		index.Fields("status", "grace_deadline"),
		index.Fields("scoring_status"),
	}
}
