package orchestrator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gmsas95/playground/internal/actions"
)

// BuildSystemPrompt renders the capability catalog into the system message
// that teaches the model to answer with the {"actions": [...]} envelope.
func BuildSystemPrompt(registry *actions.Registry) string {
	docs := registry.Catalog()

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, fmt.Sprintf("%q", doc.Name))
	}

	var b strings.Builder
	b.WriteString("You are a helpful AI assistant that MUST use actions to perform tasks.\n")
	b.WriteString("Available actions: " + strings.Join(names, ", ") + "\n\n")
	b.WriteString("IMPORTANT: You MUST ALWAYS respond with an action when performing a task. ")
	b.WriteString("NEVER respond with plain text or custom JSON formats.\n\n")

	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc.Description)
		fmt.Fprintf(&b, "   Required parameters: %s\n", formatParameters(doc.RequiredParameters))
		for _, example := range doc.Examples {
			fmt.Fprintf(&b, "   Example query: %q\n", example.Query)
			if payload, err := json.Marshal(example.Response); err == nil {
				fmt.Fprintf(&b, "   Example response: %s\n", payload)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(`RESPONSE FORMAT RULES:
1. You MUST ALWAYS respond with the exact JSON format below when performing actions:
{
  "actions": [
    {
      "name": "<exact_action_name>",
      "parameters": {}
    }
  ]
}
2. NEVER respond with plain text or custom JSON formats
3. NEVER modify the "actions" format - it must be exactly as shown
4. ALWAYS include ALL required parameters for the action
5. Use the exact action names as listed above
6. You can chain multiple actions in the "actions" array if needed`)

	return b.String()
}

// formatParameters renders the parameter docs sorted by name so the system
// prompt is stable across calls.
func formatParameters(params map[string]string) string {
	if len(params) == 0 {
		return "none"
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, params[name]))
	}
	return strings.Join(parts, ", ")
}
