package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Handler executes a capability. It returns user-visible status text;
// failures must be converted to text by the handler or the tool layer, the
// router never sees them as errors.
type Handler func(ctx context.Context, args map[string]interface{}) string

// Capability is one entry of a role's static tool table
type Capability struct {
	Name        string
	Description string
	// Schema is the JSON Schema for the tool arguments
	Schema  map[string]interface{}
	Handler Handler
}

// CapabilitySet is an immutable, startup-built table of capabilities for
// one role, with compiled argument schemas.
type CapabilitySet struct {
	caps    []Capability
	byName  map[string]int
	schemas map[string]*gojsonschema.Schema
	logger  zerolog.Logger
}

// NewCapabilitySet builds a capability set, compiling all argument schemas
func NewCapabilitySet(logger zerolog.Logger, caps ...Capability) (*CapabilitySet, error) {
	cs := &CapabilitySet{
		caps:    caps,
		byName:  make(map[string]int, len(caps)),
		schemas: make(map[string]*gojsonschema.Schema, len(caps)),
		logger:  logger,
	}

	for i, cap := range caps {
		if cap.Name == "" {
			return nil, fmt.Errorf("capability at index %d has no name", i)
		}
		if cap.Handler == nil {
			return nil, fmt.Errorf("capability %s has no handler", cap.Name)
		}
		if _, dup := cs.byName[cap.Name]; dup {
			return nil, fmt.Errorf("duplicate capability: %s", cap.Name)
		}
		cs.byName[cap.Name] = i

		if cap.Schema != nil {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(cap.Schema))
			if err != nil {
				return nil, fmt.Errorf("invalid schema for capability %s: %w", cap.Name, err)
			}
			cs.schemas[cap.Name] = schema
		}
	}

	return cs, nil
}

// Has reports whether the set contains a capability with the given name
func (cs *CapabilitySet) Has(name string) bool {
	_, ok := cs.byName[name]
	return ok
}

// Len returns the number of capabilities in the set
func (cs *CapabilitySet) Len() int {
	return len(cs.caps)
}

// Descriptors returns the tool descriptors for the model, in table order
func (cs *CapabilitySet) Descriptors() []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(cs.caps))
	for _, cap := range cs.caps {
		schema := cap.Schema
		if schema == nil {
			schema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		descriptors = append(descriptors, ToolDescriptor{
			Name:        cap.Name,
			Description: cap.Description,
			InputSchema: schema,
		})
	}
	return descriptors
}

// Dispatch validates the arguments and runs the named capability. Any
// failure is converted to user-visible text, never an error.
func (cs *CapabilitySet) Dispatch(ctx context.Context, name string, args map[string]interface{}) string {
	logger := tracing.LoggerFromContext(ctx, cs.logger)
	start := time.Now()

	idx, ok := cs.byName[name]
	if !ok {
		observability.RecordToolExecution(name, time.Since(start), false)
		logger.Warn().Str("tool", name).Msg("Unknown tool requested")
		return fmt.Sprintf("Tool %s is not available.", name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	if schema, ok := cs.schemas[name]; ok {
		result, err := schema.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			observability.RecordToolExecution(name, time.Since(start), false)
			logger.Warn().Str("tool", name).Err(err).Msg("Tool argument validation failed")
			return fmt.Sprintf("Could not validate arguments for %s.", name)
		}
		if !result.Valid() {
			problems := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				problems = append(problems, desc.String())
			}
			observability.RecordToolExecution(name, time.Since(start), false)
			logger.Warn().Str("tool", name).Strs("problems", problems).Msg("Invalid tool arguments")
			return fmt.Sprintf("Invalid arguments for %s: %s", name, strings.Join(problems, "; "))
		}
	}

	output := cs.caps[idx].Handler(ctx, args)

	observability.RecordToolExecution(name, time.Since(start), true)
	logger.Debug().
		Str("tool", name).
		Dur("duration", time.Since(start)).
		Msg("Tool executed")

	return output
}
