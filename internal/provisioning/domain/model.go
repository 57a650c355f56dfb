package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Step is a completion marker written after each externally visible side
// effect of a provisioning workflow.
type Step struct {
	ID            int64             `json:"id" gorm:"primaryKey"`
	CorrelationID string            `json:"correlation_id" gorm:"type:text;not null;index"`
	Workflow      string            `json:"workflow" gorm:"type:text;not null"`
	Organization  string            `json:"organization" gorm:"type:text;not null"`
	Step          string            `json:"step" gorm:"type:text;not null"`
	ExternalID    string            `json:"external_id" gorm:"type:text;not null"`
	Terminal      bool              `json:"terminal" gorm:"not null;default:false"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null"`
}

func (Step) TableName() string { return "provisioning_steps" }

const (
	WorkflowMerchant  = "merchant.ensure"
	WorkflowProduct   = "product.create"
	WorkflowBroadcast = "portal.broadcast"
)

const (
	StepAccountCreated     = "account.created"
	StepMerchantPersisted  = "merchant.persisted"
	StepProductCreated     = "product.created"
	StepPriceCreated       = "price.created"
	StepPaymentLinkCreated = "payment_link.created"
	StepProductPersisted   = "product.persisted"
	StepPortalPersisted    = "portal.persisted"
	StepOrphanFlagged      = "orphan.flagged"
)

var terminalSteps = map[string]struct{}{
	StepMerchantPersisted: {},
	StepPortalPersisted:   {},
	StepOrphanFlagged:     {},
}

// IsTerminal reports whether step closes its workflow for the given workflow name.
// A persisted product only finishes the standalone product workflow; during a
// broadcast the portal row is still outstanding.
func IsTerminal(workflow, step string) bool {
	if step == StepProductPersisted {
		return workflow == WorkflowProduct
	}
	_, ok := terminalSteps[step]
	return ok
}

// Marker is what callers record; identifiers and timestamps are assigned on write.
type Marker struct {
	Workflow     string
	Organization string
	Step         string
	ExternalID   string
	Metadata     map[string]any
}

// Orphan is a workflow that produced provider objects but never reached a terminal step.
type Orphan struct {
	CorrelationID string
	Workflow      string
	Organization  string
	StartedAt     time.Time
	Steps         []Step
}

// LastStep is the most recent marker of the workflow.
func (o Orphan) LastStep() string {
	if len(o.Steps) == 0 {
		return ""
	}
	return o.Steps[len(o.Steps)-1].Step
}

// ExternalIDs lists provider object ids created by the workflow.
func (o Orphan) ExternalIDs() []string {
	ids := make([]string, 0, len(o.Steps))
	for _, s := range o.Steps {
		if s.ExternalID != "" {
			ids = append(ids, s.ExternalID)
		}
	}
	return ids
}
