package picks

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/padraicbc/wagergenie/models"
)

// ErrInvalidReply is returned when a structured reply does not match
// ReplySchema.
var ErrInvalidReply = errors.New("structured reply does not match schema")

// Reply is the structured answer requested from providers that support
// JSON output.
type Reply struct {
	Message string `json:"message"`
	Pick    *Pick  `json:"pick"`
}

// ReplySchema describes Reply. The pick may be null.
func ReplySchema() *jsonschema.Schema {
	sports := make([]any, 0, len(models.Sports))
	for _, s := range models.Sports {
		sports = append(sports, string(s))
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"message": {Type: "string", Description: "Answer shown to the user."},
			"pick": {
				Types:       []string{"object", "null"},
				Description: "The single recommended bet, or null when there is none.",
				Properties: map[string]*jsonschema.Schema{
					"sport":      {Type: "string", Enum: sports},
					"event":      {Type: "string", MinLength: jsonschema.Ptr(1)},
					"prediction": {Type: "string", MinLength: jsonschema.Ptr(1)},
					"odds":       {Type: "string", Description: "American odds, e.g. -110 or +150."},
					"confidence": {Type: "integer", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(100.0)},
				},
				Required: []string{"event", "prediction"},
			},
		},
		Required: []string{"message", "pick"},
	}
}

var resolvedReply = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return ReplySchema().Resolve(nil)
})

// ParseReply validates raw against ReplySchema and decodes it. A pick with
// no populated field is reported as nil.
func ParseReply(raw []byte) (*Reply, error) {
	rs, err := resolvedReply()
	if err != nil {
		return nil, fmt.Errorf("resolving reply schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if err := rs.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if r.Message == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidReply)
	}
	if r.Pick != nil && *r.Pick == (Pick{}) {
		r.Pick = nil
	}
	return &r, nil
}
