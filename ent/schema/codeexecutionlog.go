package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CodeExecutionLog holds the schema definition for a single code-question
// sandbox run proxied through the Code Execution Proxy adapter. TTL
// container: rows are deleted after 30 days by pkg/cleanup (Postgres has no
// native per-row TTL).
type CodeExecutionLog struct {
	ent.Schema
}

// Fields of the CodeExecutionLog.
func (CodeExecutionLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("submission_id").
			Immutable(),
		field.String("question_id").
			Immutable(),
		field.Text("source_code").
			Immutable(),
		field.String("language").
			Immutable(),
		field.Text("stdout").
			Optional(),
		field.Text("stderr").
			Optional(),
		field.Int("exit_code").
			Optional().
			Nillable(),
		field.Bool("timed_out").
			Default(false),
		field.Int("duration_ms").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("deleted_after").
			Comment("TTL marker enforced by the retention sweeper, not a DB-native TTL"),
	}
}

// Edges of the CodeExecutionLog.
func (CodeExecutionLog) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("submission", Submission.Type).
			Ref("code_execution_logs").
			Field("submission_id").
			Unique().
			Required(),
	}
}

// Indexes of the CodeExecutionLog.
func (CodeExecutionLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("submission_id"),
		index.Fields("deleted_after").
			Annotations(entsql.IndexWhere("deleted_after IS NOT NULL")),
	}
}
