package outbox

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"example.com/activities/internal/domain"
)

const rosterChangedSchema = `{
  "type": "object",
  "title": "RosterChanged",
  "properties": {
    "event_id": {"type": "string", "minLength": 1},
    "event_type": {"type": "string", "enum": ["roster.enrolled", "roster.withdrawn"]},
    "activity": {"type": "string", "minLength": 1},
    "participant": {"type": "string", "minLength": 1},
    "roster_size": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "event_type", "activity", "participant", "roster_size", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema   string
	compiled *gojsonschema.Schema
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	domain.EventTypeEnrolled: {
		Schema:   rosterChangedSchema,
		compiled: mustCompile(rosterChangedSchema),
	},
	domain.EventTypeWithdrawn: {
		Schema:   rosterChangedSchema,
		compiled: mustCompile(rosterChangedSchema),
	},
}

func mustCompile(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return compiled
}

// validatePayload checks an encoded event against the schema registered for its type.
func validatePayload(eventType string, payload []byte) (SchemaCatalogEntry, error) {
	entry, ok := schemaCatalog[eventType]
	if !ok {
		return SchemaCatalogEntry{}, fmt.Errorf("%w: no schema metadata for event_type=%s", ErrInvalidEvent, eventType)
	}
	result, err := entry.compiled.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return SchemaCatalogEntry{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if !result.Valid() {
		return SchemaCatalogEntry{}, fmt.Errorf("%w: %s", ErrInvalidEvent, result.Errors()[0])
	}
	return entry, nil
}
