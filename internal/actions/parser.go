package actions

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Parser extracts action invocations from raw model output. Models are
// instructed to answer with an {"actions": [...]} envelope but often wrap it
// in prose, so the parser scans for the first valid JSON object carrying an
// actions array. Anything else degrades to "no actions" — a plain
// conversational reply is not an error.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

type actionEnvelope struct {
	Actions []Invocation `json:"actions"`
}

// Parse returns the invocations found in content, in declaration order.
// It never fails; ambiguous or unstructured content yields an empty batch.
func (p *Parser) Parse(content string) []Invocation {
	for offset := 0; offset < len(content); {
		start := strings.IndexByte(content[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		invocations, end, ok := p.tryDecode(content[start:])
		if ok {
			return invocations
		}
		if end > 0 {
			// A well-formed object without an actions array; skip past it.
			offset = start + end
			continue
		}
		offset = start + 1
	}

	return []Invocation{}
}

// tryDecode attempts to read one JSON object at the head of s. It returns
// the invocations when the object carries a well-formed actions array, and
// the number of bytes consumed when the object was valid JSON either way.
func (p *Parser) tryDecode(s string) ([]Invocation, int, bool) {
	dec := json.NewDecoder(strings.NewReader(s))

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, false
	}
	consumed := int(dec.InputOffset())

	rawActions, ok := raw["actions"]
	if !ok {
		return nil, consumed, false
	}

	var invocations []Invocation
	if err := json.Unmarshal(rawActions, &invocations); err != nil {
		p.logger.Debug("Actions field has unexpected shape", zap.Error(err))
		return nil, consumed, false
	}

	for i := range invocations {
		if invocations[i].Parameters == nil {
			invocations[i].Parameters = map[string]interface{}{}
		}
	}
	return invocations, consumed, true
}
