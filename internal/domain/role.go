package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role groups permissions for assignment to users
type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Permission grants an action on a resource, optionally guarded by a
// boolean condition expression evaluated against request attributes.
// Multiple permissions may cover the same (resource, action) with
// different conditions; a user is granted if any of them matches.
type Permission struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Resource    string    `json:"resource" db:"resource" validate:"required,min=2,max=100"`
	Action      string    `json:"action" db:"action" validate:"required,min=2,max=50"`
	Condition   *string   `json:"condition,omitempty" db:"condition_expr"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Identifier is the permission's stable claim form, e.g. "Invoice:UPDATE".
func (p *Permission) Identifier() string {
	return fmt.Sprintf("%s:%s", p.Resource, p.Action)
}

// ConditionExpr returns the condition expression or "" for an
// unconditional grant.
func (p *Permission) ConditionExpr() string {
	if p.Condition == nil {
		return ""
	}
	return *p.Condition
}
