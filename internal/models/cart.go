package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cart status values. A cart is created in "generating" when the debit and
// the generation job are committed together; the worker moves it to "ready"
// or "failed".
const (
	CartStatusGenerating = "generating"
	CartStatusReady      = "ready"
	CartStatusFailed     = "failed"
)

// Supported generation models and their credit cost.
const (
	ModelGemini25 = "gemini-2.5"
	ModelGemini3  = "gemini-3"
)

// CostForModel returns the credit cost of a generation, or 0 for an unknown
// model.
func CostForModel(model string) int {
	switch model {
	case ModelGemini25:
		return 1
	case ModelGemini3:
		return 2
	default:
		return 0
	}
}

// Cart is a generated application record. Code holds either a legacy single
// HTML document or a JSON-encoded array of project files.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Prompt    string    `json:"prompt"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Code      string    `json:"code"`
	IsListed  bool      `json:"is_listed"`
	Views     int       `json:"views"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectFile is a single file of a generated project. Names are unique
// within a project; lookup is case-insensitive.
type ProjectFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Project decodes the cart's code into an ordered file set. Legacy carts
// store a bare HTML document; those become a single index.html file.
func (c *Cart) Project() []ProjectFile {
	trimmed := strings.TrimSpace(c.Code)
	if strings.HasPrefix(trimmed, "[") {
		var files []ProjectFile
		if err := json.Unmarshal([]byte(trimmed), &files); err == nil && len(files) > 0 {
			return files
		}
	}
	return []ProjectFile{{Name: "index.html", Content: c.Code}}
}
