package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SectionProgress marks a lecture section as completed for a mission.
type SectionProgress struct {
	ent.Schema
}

func (SectionProgress) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "section_progress"},
	}
}

func (SectionProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("mission_id").
			NotEmpty().
			Immutable(),
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.String("lecture_id").
			NotEmpty().
			Immutable(),
		field.String("section_id").
			NotEmpty().
			Immutable(),
		field.Bool("is_completed").
			Default(true),
		field.Int("time_spent_sec").
			Default(0).
			Comment("Accumulates across repeated completions"),
		field.Time("completed_at"),
	}
}

func (SectionProgress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("mission_id", "user_key", "lecture_id", "section_id").
			Unique(),
	}
}
