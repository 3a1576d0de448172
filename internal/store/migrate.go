package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	sqlschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/tirgul/tirgul/ent/schema"
)

// Schemas lists every ent schema materialized as a table.
var Schemas = []ent.Interface{
	entschema.User{},
	entschema.AnswerEvent{},
	entschema.Mission{},
	entschema.MissionProgress{},
	entschema.MissionAttempt{},
	entschema.SectionProgress{},
	entschema.MissionReward{},
}

// Migrate creates or alters tables to match Schemas.
func (s *Store) Migrate(ctx context.Context) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := sqlschema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Tables converts Schemas into migration tables.
func Tables() ([]*sqlschema.Table, error) {
	tables := make([]*sqlschema.Table, 0, len(Schemas))
	for _, sc := range Schemas {
		t, err := tableOf(sc)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func tableOf(sc ent.Interface) (*sqlschema.Table, error) {
	name := tableName(sc)
	t := sqlschema.NewTable(name)

	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range sc.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, sc.Fields()...)
	indexes = append(indexes, sc.Indexes()...)

	hasID := false
	for _, f := range fields {
		if f.Descriptor().Name == "id" {
			hasID = true
			break
		}
	}
	if !hasID {
		t.AddPrimary(&sqlschema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	}

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		col := &sqlschema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
			Comment:  d.Comment,
		}
		if d.StorageKey != "" {
			col.Name = d.StorageKey
		}
		if literal(d.Default) {
			col.Default = d.Default
		}
		if d.Name == "id" {
			t.AddPrimary(col)
			continue
		}
		t.AddColumn(col)
	}

	for _, idx := range indexes {
		d := idx.Descriptor()
		idxName := d.StorageKey
		if idxName == "" {
			idxName = name + "_" + strings.Join(d.Fields, "_")
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}

func tableName(sc ent.Interface) string {
	for _, a := range sc.Annotations() {
		switch ant := a.(type) {
		case entsql.Annotation:
			if ant.Table != "" {
				return ant.Table
			}
		case *entsql.Annotation:
			if ant != nil && ant.Table != "" {
				return ant.Table
			}
		}
	}
	return strings.ToLower(fmt.Sprintf("%T", sc))
}

// literal reports whether a field default can be written into DDL.
// Function defaults such as time.Now are applied by the repositories.
func literal(v any) bool {
	switch v.(type) {
	case bool, int, int64, float64, string:
		return true
	}
	return false
}
