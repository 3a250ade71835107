package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Question holds the schema definition for a curated catalog entry.
// Corresponds to the Question container of the Question Catalog component.
type Question struct {
	ent.Schema
}

// Fields of the Question.
func (Question) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("topic").
			Comment("Coarse subject grouping used by composition filters"),
		field.Enum("kind").
			Values("mcq", "free_text", "code").
			Comment("Determines which evaluator adapter scores this question"),
		field.Enum("difficulty").
			Values("easy", "medium", "hard").
			Default("medium"),
		field.Text("stem").
			Comment("The question prompt, full-text searchable"),
		field.JSON("choices", []string{}).
			Optional().
			Comment("Present only for kind=mcq"),
		field.JSON("answer_key", map[string]interface{}{}).
			Comment("Correct choice index for mcq, or grading rubric reference for free_text/code"),
		field.JSON("rubric", map[string]interface{}{}).
			Optional().
			Comment("LLM scoring rubric for free_text questions"),
		field.JSON("tags", []string{}).
			Optional(),
		field.Enum("source").
			Values("curated", "generated").
			Default("curated"),
		field.String("content_hash").
			Comment("Normalized-stem hash used for duplicate detection"),
		field.JSON("embedding", []float32{}).
			Optional().
			Comment("Vector used for semantic duplicate detection, see pkg/rag"),
		field.Int("usage_count").
			Default(0).
			Comment("Times this question has been composed into a snapshot"),
		field.Int("version").
			Default(0).
			Comment("Optimistic-concurrency counter backing the facade ETag"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the Question.
func (Question) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("topic"),
		index.Fields("kind"),
		index.Fields("content_hash"),
		index.Fields("source"),
		index.Fields("topic", "difficulty"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}
