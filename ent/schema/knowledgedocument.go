package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KnowledgeDocument holds the schema definition for reference material the
// Question Generator Adapter grounds generated questions against (e.g. a
// topic's style guide or source material). Embedded via pkg/rag for
// semantic retrieval.
type KnowledgeDocument struct {
	ent.Schema
}

// Fields of the KnowledgeDocument.
func (KnowledgeDocument) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("topic"),
		field.Text("content"),
		field.JSON("embedding", []float32{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the KnowledgeDocument.
func (KnowledgeDocument) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("topic"),
	}
}
