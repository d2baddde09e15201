package store

import "time"

// EvaluationRun records one prompt fanned across provider/model pairs.
type EvaluationRun struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Prompt    string    `gorm:"not null" json:"prompt"`
	CreatedAt time.Time `json:"created_at"`

	Results []EvaluationResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"results"`
}

// EvaluationResult is one provider/model outcome within a run.
type EvaluationResult struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID       string `gorm:"index;not null" json:"-"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Content     string `json:"content"`
	InputUnits  int64  `json:"input_units"`
	OutputUnits int64  `json:"output_units"`
	TotalCost   string `json:"total_cost"`
	DurationMs  int64  `json:"duration_ms"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Setting is one persisted key/value configuration entry.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
