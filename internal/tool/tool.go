// Package tool provides the capability framework for conversational tool
// execution: tool definitions with JSON Schema parameters, a registry,
// and a lifecycle decorator that reports start/finish notifications for
// every invocation.
package tool

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

// Tool defines the interface for all capabilities.
type Tool interface {
	// Name returns the tool identifier.
	Name() string

	// Description returns the tool description.
	Description() string

	// Parameters returns the JSON Schema for tool parameters.
	Parameters() json.RawMessage

	// Execute executes the tool with the given input.
	Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error)
}

// Context provides execution context to tools.
type Context struct {
	SessionID string
	TurnID    string

	// EnhancedRequestSink receives the modification description queued by
	// the queue_edit tool. Nil for tools that never queue edits.
	EnhancedRequestSink func(description string)
}

// Result represents the output of a tool execution.
type Result struct {
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Info converts a tool definition to the Eino tool description consumed
// by the inference engine.
func Info(t Tool) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(parseJSONSchemaToParams(t.Parameters())),
	}
}

// parseJSONSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
