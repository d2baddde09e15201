// Package greeting implements the greeting action.
package greeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/gmsas95/playground/internal/actions"
)

var greetings = map[string]string{
	"en": "Hello, %s!",
	"es": "¡Hola, %s!",
	"fr": "Bonjour, %s!",
}

// Action generates a greeting message in a supported language.
type Action struct {
	*actions.BaseAction
}

func New() *Action {
	return &Action{
		BaseAction: actions.NewBaseAction(
			"greeting",
			"Generates a greeting message. Optional parameter: language (en/es/fr), defaults to en",
			map[string]string{
				"name": "Name of the person to greet",
			},
			[]actions.Example{
				{
					Query: "Say hello to Alice",
					Response: map[string]interface{}{
						"actions": []interface{}{
							map[string]interface{}{
								"name": "greeting",
								"parameters": map[string]interface{}{
									"name": "Alice",
								},
							},
						},
					},
					Description: "Basic greeting",
				},
				{
					Query: "Greet Bob in Spanish",
					Response: map[string]interface{}{
						"actions": []interface{}{
							map[string]interface{}{
								"name": "greeting",
								"parameters": map[string]interface{}{
									"name":     "Bob",
									"language": "es",
								},
							},
						},
					},
					Description: "Greeting in specific language",
				},
			},
		),
	}
}

func (a *Action) Execute(ctx context.Context, params map[string]interface{}) actions.Result {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return actions.Result{
			Success: false,
			Message: "Invalid name parameter",
			Error:   "name must be a non-empty string",
		}
	}

	language := "en"
	if lang, ok := params["language"].(string); ok && lang != "" {
		language = lang
	}

	format, ok := greetings[language]
	if !ok {
		supported := make([]string, 0, len(greetings))
		for code := range greetings {
			supported = append(supported, code)
		}
		return actions.Result{
			Success: false,
			Message: "Unsupported language: " + language,
			Error:   "language must be one of: " + strings.Join(supported, ", "),
		}
	}

	message := fmt.Sprintf(format, name)
	return actions.Result{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"language": language,
			"name":     name,
			"greeting": message,
		},
	}
}
