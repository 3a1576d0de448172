package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Mission is a unit of practice or lecture work assigned to one user.
type Mission struct {
	ent.Schema
}

func (Mission) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "missions"},
	}
}

func (Mission) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable().
			Comment("UUID"),
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.String("title").
			NotEmpty(),
		field.String("type").
			NotEmpty().
			Immutable().
			Comment("practice or lecture"),
		field.Text("config").
			Comment("Validated JSON mission config"),
		field.Int("points").
			Default(0),
		field.Time("deadline").
			Optional().
			Nillable(),
		field.String("status").
			Default("active").
			Comment("active or completed; expired is derived at read time"),
		field.Time("created_at").
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

func (Mission) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_key"),
		index.Fields("user_key", "status"),
	}
}
