package api

import "github.com/gmsas95/playground/internal/actions"

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ExecuteActionsRequest is the body of POST /api/execute_actions.
type ExecuteActionsRequest struct {
	Actions []actions.Invocation `json:"actions"`
}

// ClearHistoryRequest is the body of POST /api/history/clear.
type ClearHistoryRequest struct {
	Provider string `json:"provider"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// EvaluateTarget names one provider/model pair to evaluate.
type EvaluateTarget struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Prompt  string           `json:"prompt"`
	Targets []EvaluateTarget `json:"targets"`
}
