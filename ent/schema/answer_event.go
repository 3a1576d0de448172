package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AnswerEvent records one graded attempt. Rows are append-only.
type AnswerEvent struct {
	ent.Schema
}

func (AnswerEvent) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "answer_events"},
	}
}

func (AnswerEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (AnswerEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_key").
			NotEmpty().
			Immutable(),
		field.String("topic_id").
			NotEmpty().
			Immutable(),
		field.String("subtopic_id").
			Optional().
			Immutable(),
		field.String("difficulty").
			NotEmpty().
			Immutable().
			Comment("easy, medium or hard"),
		field.Bool("is_correct").
			Immutable(),
		field.Int("time_taken_sec").
			Default(0).
			Immutable(),
		field.Int("hints_used").
			Default(0).
			Immutable(),
		field.Int("attempt_index").
			Default(0).
			Immutable().
			Comment("Attempt number on the same question, starting at 1"),
	}
}

func (AnswerEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_key", "topic_id"),
		index.Fields("user_key"),
	}
}
