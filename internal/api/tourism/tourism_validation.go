package tourism

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const MaxQueryLength = 2000

var ErrInvalidRequest = errors.New("invalid request")

const chatRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {
      "type": "string",
      "minLength": 1,
      "maxLength": %d,
      "pattern": "\\S"
    },
    "conversation_history": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"type": "string", "enum": ["user", "assistant"]},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

var chatSchema = mustSchema(fmt.Sprintf(chatRequestSchema, MaxQueryLength))

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid chat request schema: %v", err))
	}
	return schema
}

// validateChatRequest checks a raw request body against the chat schema.
// The returned error wraps ErrInvalidRequest and lists every violation.
func validateChatRequest(raw []byte) error {
	result, err := chatSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(errs, "; "))
}
