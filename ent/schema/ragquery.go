package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// RagQuery holds the schema definition for a logged semantic-search query,
// used to audit duplicate-detection and generation-grounding decisions. TTL
// container: rows are deleted after 30 days by pkg/cleanup.
type RagQuery struct {
	ent.Schema
}

// Fields of the RagQuery.
func (RagQuery) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("purpose").
			Comment("e.g. 'duplicate_check', 'generation_grounding'"),
		field.Text("query_text"),
		field.JSON("top_matches", []string{}).
			Optional().
			Comment("IDs of the nearest neighbors returned"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("deleted_after"),
	}
}

// Indexes of the RagQuery.
func (RagQuery) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("purpose"),
		index.Fields("deleted_after").
			Annotations(entsql.IndexWhere("deleted_after IS NOT NULL")),
	}
}
