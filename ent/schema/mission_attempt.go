package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MissionAttempt is the per-question attempt record of a practice mission.
// The first insert for a question is what counts toward the mission.
type MissionAttempt struct {
	ent.Schema
}

func (MissionAttempt) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "mission_attempts"},
	}
}

func (MissionAttempt) Fields() []ent.Field {
	return []ent.Field{
		field.String("mission_id").
			NotEmpty().
			Immutable(),
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.String("question_id").
			NotEmpty().
			Immutable(),
		field.Text("question_text").
			Optional(),
		field.Bool("is_correct"),
		field.Int("attempts_count").
			Default(1),
		field.Time("first_attempt_at").
			Immutable(),
		field.Time("last_attempt_at"),
	}
}

func (MissionAttempt) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("mission_id", "user_key", "question_id").
			Unique(),
	}
}
