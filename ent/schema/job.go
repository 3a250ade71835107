package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job holds the schema definition for the durable job pipeline. In both
// queue modes this table is the at-least-once delivery record workers claim
// from; the NATS JetStream broker and the in-process channel only carry
// wake-up signals.
type Job struct {
	ent.Schema
}

// Fields of the Job.
func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.Enum("kind").
			Values("score", "report").
			Immutable(),
		field.String("submission_id").
			Immutable(),
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed", "dead_letter").
			Default("pending"),
		field.Int("attempts").
			Default(0),
		field.Int("max_attempts").
			Default(5),
		field.Time("visible_at").
			Default(time.Now).
			Comment("Jobs become claimable once now() >= visible_at; used for backoff"),
		field.String("claimed_by").
			Optional().
			Nillable().
			Comment("pod/worker ID, for orphan detection"),
		field.Time("last_heartbeat_at").
			Optional().
			Nillable(),
		field.Text("last_error").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Job.
func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "visible_at"),
		index.Fields("submission_id"),
		index.Fields("kind", "status"),
	}
}
