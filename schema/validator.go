package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Sentinel errors for schema operations.
var (
	ErrSchemaUnknown = errors.New("schema: schema is not registered")
	ErrInvalidName   = errors.New("schema: name is empty")
)

// ValidationError reports a payload that failed its schema check.
type ValidationError struct {
	// Schema is the registered name of the violated schema.
	Schema string

	// Causes lists the individual validator failures.
	Causes []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: payload failed validation against %q: %s",
		e.Schema, strings.Join(e.Causes, "; "))
}

// Validator compiles and caches JSON Schema validators by name.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Compilation happens at most once per registered name; Register with
//   an existing name replaces the source and drops the cached validator.
type Validator struct {
	mu       sync.Mutex
	sources  map[string][]byte
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates an empty Validator.
func NewValidator() *Validator {
	return &Validator{
		sources:  make(map[string][]byte),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register stores a raw JSON Schema document under name.
func (v *Validator) Register(name string, source []byte) error {
	if name == "" {
		return ErrInvalidName
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sources[name] = source
	delete(v.compiled, name)
	return nil
}

// Has reports whether a schema is registered under name.
func (v *Validator) Has(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.sources[name]
	return ok
}

// Validate checks a raw JSON payload against the named schema. Returns
// nil when the payload conforms, *ValidationError when it does not, and
// other errors for unknown schemas, unparsable payloads or schema
// compilation failures.
func (v *Validator) Validate(name string, payload []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("schema: payload is not valid JSON: %w", err)
	}
	return v.ValidateValue(name, instance)
}

// ValidateValue checks an already-decoded payload against the named
// schema.
func (v *Validator) ValidateValue(name string, instance any) error {
	sch, err := v.compile(name)
	if err != nil {
		return err
	}

	if err := sch.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Schema: name, Causes: flatten(ve)}
		}
		return &ValidationError{Schema: name, Causes: []string{err.Error()}}
	}
	return nil
}

// compile returns the cached validator for name, compiling it on first
// use.
func (v *Validator) compile(name string) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[name]; ok {
		return sch, nil
	}
	source, ok := v.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaUnknown, name)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("schema: %q is not valid JSON: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	resource := name
	if !strings.HasSuffix(resource, ".json") {
		resource += ".json"
	}
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("schema: add %q: %w", name, err)
	}
	sch, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %q: %w", name, err)
	}

	v.compiled[name] = sch
	return sch, nil
}

// flatten collects leaf causes from a validation error tree.
func flatten(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.Error()}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
