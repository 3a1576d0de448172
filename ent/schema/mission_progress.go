package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MissionProgress is the aggregate progress row for one (mission, user).
type MissionProgress struct {
	ent.Schema
}

func (MissionProgress) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "mission_progress"},
	}
}

func (MissionProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("mission_id").
			NotEmpty().
			Immutable(),
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.Int("current_count").
			Default(0).
			Comment("Unique questions or completed sections; only grows"),
		field.Int("required_count").
			Immutable(),
		field.Float("accuracy").
			Default(0).
			Comment("Percent correct over unique questions, two decimals"),
		field.Int("unique_questions").
			Default(0),
		field.Int("correct_questions").
			Default(0),
		field.Int("total_time_spent_sec").
			Default(0),
		field.Time("last_activity").
			Optional().
			Nillable(),
	}
}

func (MissionProgress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("mission_id", "user_key").
			Unique(),
	}
}
