package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
)

// User is the learner identity as seen by the core. The key comes from the
// caller unverified.
type User struct {
	ent.Schema
}

func (User) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "users"},
	}
}

func (User) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_key").
			NotEmpty().
			Unique().
			Immutable(),
		field.Int("total_points").
			Default(0).
			Comment("Sum of mission rewards"),
		field.Time("created_at").
			Immutable(),
	}
}
