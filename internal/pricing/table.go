package pricing

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// tableFile is the YAML shape of a rate table. Rates are kept as strings so
// they parse into decimals without passing through a float.
type tableFile struct {
	Providers map[string]map[string]rateEntry `yaml:"providers"`
}

type rateEntry struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// LoadTable reads a rate table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses YAML rate-table content.
func ParseTable(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pricing table: %w", err)
	}

	table := make(Table, len(file.Providers))
	for provider, models := range file.Providers {
		table[provider] = make(map[string]Rate, len(models))
		for model, entry := range models {
			input, err := decimal.NewFromString(entry.Input)
			if err != nil {
				return nil, fmt.Errorf("invalid input rate for %s/%s: %w", provider, model, err)
			}
			output, err := decimal.NewFromString(entry.Output)
			if err != nil {
				return nil, fmt.Errorf("invalid output rate for %s/%s: %w", provider, model, err)
			}
			table[provider][model] = Rate{Input: input, Output: output}
		}
	}
	return table, nil
}

// DefaultTable returns the built-in per-token USD rates (February 2024
// price lists; Grok values are estimates). Ollama runs locally and is
// deliberately absent, which prices it at zero.
func DefaultTable() Table {
	rate := func(input, output string) Rate {
		return Rate{
			Input:  decimal.RequireFromString(input),
			Output: decimal.RequireFromString(output),
		}
	}

	return Table{
		"openai": {
			"gpt-4-vision-preview": rate("0.00001", "0.00003"),
			"gpt-4-0125-preview":   rate("0.00001", "0.00003"),
			"gpt-4-1106-preview":   rate("0.00001", "0.00003"),
			"gpt-4":                rate("0.00003", "0.00006"),
			"gpt-3.5-turbo-0125":   rate("0.0000005", "0.0000015"),
			"gpt-3.5-turbo":        rate("0.0000005", "0.0000015"),
			"gpt-3.5-turbo-16k":    rate("0.000003", "0.000004"),
		},
		"anthropic": {
			"claude-3-opus-20240229":   rate("0.000015", "0.000075"),
			"claude-3-sonnet-20240229": rate("0.000003", "0.000015"),
			"claude-3-haiku-20240307":  rate("0.0000005", "0.0000025"),
			"claude-2.1":               rate("0.000008", "0.000024"),
		},
		"grok": {
			"grok-1":     rate("0.000002", "0.000006"),
			"grok-1-pro": rate("0.000005", "0.000015"),
		},
	}
}
