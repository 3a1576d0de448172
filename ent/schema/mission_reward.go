package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MissionReward is the award ledger. At most one row per (mission, user).
type MissionReward struct {
	ent.Schema
}

func (MissionReward) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "mission_rewards"},
	}
}

func (MissionReward) Fields() []ent.Field {
	return []ent.Field{
		field.String("mission_id").
			NotEmpty().
			Immutable(),
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.Int("points").
			Immutable(),
		field.Time("awarded_at").
			Immutable(),
	}
}

func (MissionReward) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("mission_id", "user_key").
			Unique(),
	}
}
