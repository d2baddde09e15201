// Package actions implements the capability registry, the extraction of
// action invocations from model output, and their isolated execution.
package actions

import "context"

// Action is a named, schema-described operation the system can run on
// behalf of a model's response.
type Action interface {
	Name() string
	Description() string
	RequiredParameters() map[string]string
	Examples() []Example
	Execute(ctx context.Context, params map[string]interface{}) Result
}

// Example documents one sample query/response pair for an action, used to
// build the advertised catalog and the system prompt.
type Example struct {
	Query       string                 `json:"query"`
	Response    map[string]interface{} `json:"response"`
	Description string                 `json:"description,omitempty"`
}

// Invocation is one concrete request to run an action, as extracted from
// model output. It is transient and never persisted.
type Invocation struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Result is the outcome of one invocation attempt. Message is always set;
// Data carries the payload on success and Error the detail on failure.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Documentation is the catalog entry advertised for an action.
type Documentation struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	RequiredParameters map[string]string `json:"required_parameters"`
	Examples           []Example         `json:"examples"`
}

// Document builds the catalog entry for an action.
func Document(a Action) Documentation {
	examples := a.Examples()
	if examples == nil {
		examples = []Example{}
	}
	required := a.RequiredParameters()
	if required == nil {
		required = map[string]string{}
	}
	return Documentation{
		Name:               a.Name(),
		Description:        a.Description(),
		RequiredParameters: required,
		Examples:           examples,
	}
}

// BaseAction provides the descriptive half of the Action contract so
// concrete actions only implement Execute.
type BaseAction struct {
	name        string
	description string
	required    map[string]string
	examples    []Example
}

func NewBaseAction(name, description string, required map[string]string, examples []Example) *BaseAction {
	return &BaseAction{
		name:        name,
		description: description,
		required:    required,
		examples:    examples,
	}
}

func (a *BaseAction) Name() string                          { return a.name }
func (a *BaseAction) Description() string                   { return a.description }
func (a *BaseAction) RequiredParameters() map[string]string { return a.required }
func (a *BaseAction) Examples() []Example                   { return a.examples }
