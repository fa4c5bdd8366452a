package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const rosterRequestSchema = `{
  "type": "object",
  "title": "RosterRequest",
  "properties": {
    "activity": {"type": "string", "minLength": 1, "maxLength": 200},
    "email": {
      "type": "string",
      "format": "email",
      "maxLength": 254,
      "pattern": "^[^\\s<>@]+@[^\\s<>@]+$"
    }
  },
  "required": ["activity", "email"],
  "additionalProperties": false
}`

var rosterRequest = mustSchema(rosterRequestSchema)

func mustSchema(def string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// RosterRequest is the sign-up or unregister input taken from the path and query string.
type RosterRequest struct {
	Activity string
	Email    string
}

// Validate ensures the request is well formed before it reaches the catalog.
func (r RosterRequest) Validate() error {
	result, err := rosterRequest.Validate(gojsonschema.NewGoLoader(map[string]any{
		"activity": r.Activity,
		"email":    r.Email,
	}))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
