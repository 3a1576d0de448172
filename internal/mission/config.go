package mission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// PracticeConfig is the config of a practice mission.
type PracticeConfig struct {
	QuestionCount int    `json:"questionCount"`
	TopicID       string `json:"topicId,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

// LectureConfig is the config of a lecture mission. RequiredSections
// defaults to the number of listed sections.
type LectureConfig struct {
	LectureID        string   `json:"lectureId"`
	Sections         []string `json:"sections,omitempty"`
	RequiredSections int      `json:"requiredSections,omitempty"`
}

// HasSection reports whether sectionID may count toward the mission.
// An empty section list accepts any section.
func (c LectureConfig) HasSection(sectionID string) bool {
	return len(c.Sections) == 0 || slices.Contains(c.Sections, sectionID)
}

var configSchemas = map[Type]string{
	TypePractice: `{
		"type": "object",
		"required": ["questionCount"],
		"properties": {
			"questionCount": {"type": "integer", "minimum": 1, "maximum": 1000},
			"topicId": {"type": "string", "minLength": 1},
			"difficulty": {"enum": ["easy", "medium", "hard"]}
		}
	}`,
	TypeLecture: `{
		"type": "object",
		"required": ["lectureId"],
		"properties": {
			"lectureId": {"type": "string", "minLength": 1},
			"sections": {
				"type": "array",
				"items": {"type": "string", "minLength": 1},
				"uniqueItems": true
			},
			"requiredSections": {"type": "integer", "minimum": 1}
		},
		"anyOf": [
			{"required": ["sections"], "properties": {"sections": {"minItems": 1}}},
			{"required": ["requiredSections"]}
		]
	}`,
}

// compiledSchemas caches compiled schemas by mission type.
var compiledSchemas sync.Map // map[Type]*jsonschema.Schema

func compiledSchema(t Type) (*jsonschema.Schema, error) {
	if cached, ok := compiledSchemas.Load(t); ok {
		return cached.(*jsonschema.Schema), nil
	}
	src, ok := configSchemas[t]
	if !ok {
		return nil, fmt.Errorf("no config schema for type %q", t)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(src)))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://mission/%s.json", t)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	compiledSchemas.Store(t, compiled)
	return compiled, nil
}

// ValidateConfig checks raw against the schema for t and returns the number
// of questions or sections required to complete the mission.
func ValidateConfig(t Type, raw json.RawMessage) (int, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: unknown mission type %q", ErrInvalidInput, t)
	}
	schema, err := compiledSchema(t)
	if err != nil {
		return 0, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: config is not valid JSON: %v", ErrInvalidInput, err)
	}
	if err := schema.Validate(doc); err != nil {
		return 0, fmt.Errorf("%w: %s config: %v", ErrInvalidInput, t, err)
	}

	switch t {
	case TypePractice:
		var c PracticeConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return c.QuestionCount, nil
	default:
		c, err := parseLectureConfig(raw)
		if err != nil {
			return 0, err
		}
		if c.RequiredSections > 0 {
			if len(c.Sections) > 0 && c.RequiredSections > len(c.Sections) {
				return 0, fmt.Errorf("%w: requiredSections %d exceeds the %d listed sections",
					ErrInvalidInput, c.RequiredSections, len(c.Sections))
			}
			return c.RequiredSections, nil
		}
		return len(c.Sections), nil
	}
}

func parseLectureConfig(raw json.RawMessage) (LectureConfig, error) {
	var c LectureConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return c, nil
}
