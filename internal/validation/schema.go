package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/igrejaonline/portal/internal/apperr"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// schemas caches compiled schemas per payload type.
var schemas sync.Map // reflect.Type -> *jschema.Schema

// DecodeJSON reads the request body, validates it against the JSON Schema
// reflected from dst's type and then decodes it into dst. Fields the schema
// doesn't describe are ignored, so clients can't set server-owned values
// such as authorId. Failures are validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return apperr.Validation("request body unreadable")
	}
	if len(body) > MaxBodyBytes {
		return apperr.Validation("request body too large")
	}
	return Decode(body, dst)
}

// Decode is DecodeJSON for an in-memory body.
func Decode(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.Validation("request body is required")
	}

	instance, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return apperr.Validation("invalid JSON body")
	}

	// null stands for an omitted optional field
	if obj, ok := instance.(map[string]any); ok {
		for k, v := range obj {
			if v == nil {
				delete(obj, k)
			}
		}
	}

	sch, err := schemaFor(reflect.TypeOf(dst))
	if err != nil {
		return err
	}

	err = sch.Validate(instance)
	if err != nil {
		return apperr.Validation("%s", FormatSchemaError(err))
	}

	err = json.Unmarshal(body, dst)
	if err != nil {
		return apperr.Validation("invalid JSON body")
	}

	return nil
}

// GenerateSchema reflects the JSON Schema for the payload type of v.
func GenerateSchema(v any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(v)

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	schema.ID = jsonschema.ID(fmt.Sprintf("https://igrejaonline.app/schemas/%s.json", strings.ToLower(t.Name())))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

func schemaFor(t reflect.Type) (*jschema.Schema, error) {
	if cached, ok := schemas.Load(t); ok {
		return cached.(*jschema.Schema), nil
	}

	schemaBytes, err := GenerateSchema(reflect.New(t.Elem()).Interface())
	if err != nil {
		return nil, err
	}

	schemaData, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	actual, _ := schemas.LoadOrStore(t, sch)
	return actual.(*jschema.Schema), nil
}

// FormatSchemaError turns a validation error into one line per violation.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}

	lines := strings.Split(err.Error(), "\n")
	if len(lines) == 1 {
		return lines[0]
	}

	// First line names the schema, the rest are the violations
	var out []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "; ")
}
