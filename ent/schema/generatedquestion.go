package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GeneratedQuestion holds the schema definition for the generator cache.
// An entry is promoted into the Question catalog the moment a composition
// picks it (from the cache tier or as a fresh generation); once
// promoted_question_id is set the cache lookup no longer returns it, so each
// entry is consumed by at most one composition.
type GeneratedQuestion struct {
	ent.Schema
}

// Fields of the GeneratedQuestion.
func (GeneratedQuestion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("topic"),
		field.Enum("difficulty").
			Values("easy", "medium", "hard"),
		field.Enum("kind").
			Values("mcq", "free_text", "code"),
		field.Text("stem"),
		field.JSON("choices", []string{}).
			Optional(),
		field.JSON("answer_key", map[string]interface{}{}),
		field.JSON("rubric", map[string]interface{}{}).
			Optional(),
		field.JSON("embedding", []float32{}).
			Optional(),
		field.String("content_hash"),
		field.String("prompt_fingerprint").
			Comment("SHA-256(skill|type|difficulty): the shape-only cache key, independent of stem content"),
		field.String("generator_model").
			Comment("Identifies which generation backend produced this question"),
		field.String("promoted_question_id").
			Optional().
			Nillable().
			Comment("Set once this entry is promoted into the Question catalog"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the GeneratedQuestion.
func (GeneratedQuestion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("topic", "difficulty"),
		index.Fields("content_hash"),
		index.Fields("prompt_fingerprint"),
	}
}
