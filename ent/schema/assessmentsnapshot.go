package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AssessmentSnapshot holds the schema definition for a composed assessment.
// Immutable once created: the Assessment Composer's output is frozen here so
// that later catalog edits never retroactively change an in-flight or past
// attempt's questions, points, or timing.
type AssessmentSnapshot struct {
	ent.Schema
}

// Fields of the AssessmentSnapshot.
func (AssessmentSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.JSON("composition_spec", map[string]interface{}{}).
			Immutable().
			Comment("The request that produced this snapshot (topics, counts, difficulty mix)"),
		field.JSON("question_ids", []string{}).
			Immutable().
			Comment("Ordered question IDs as composed; the order is the presentation order"),
		field.JSON("points_by_question", map[string]interface{}{}).
			Immutable(),
		field.JSON("questions", []map[string]interface{}{}).
			Immutable().
			Comment("Deep copy of each composed question's content (stem, choices, answer_key, rubric) at compose time, so later catalog edits never change an in-flight or past attempt"),
		field.Int("total_points").
			Immutable(),
		field.Int("time_limit_seconds").
			Immutable(),
		field.Int("grace_period_seconds").
			Immutable(),
		field.Int("violation_limit").
			Immutable(),
		field.Bool("used_fallback_generation").
			Default(false).
			Comment("True if any question came from the generator rather than curated/cache"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AssessmentSnapshot.
func (AssessmentSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("created_at"),
	}
}
