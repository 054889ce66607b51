package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionStep names the step of the decision order that produced an action.
type DecisionStep string

// Decision step constants, in evaluation order.
const (
	StepSafeguard       DecisionStep = "safeguard"
	StepNoMoneyIntent   DecisionStep = "no_money_intent"
	StepRuleOverride    DecisionStep = "rule_override"
	StepSpendNoConvert  DecisionStep = "spend_without_conversion"
	StepBrandComingling DecisionStep = "brand_comingling"
	StepGeoIsolation    DecisionStep = "geo_isolation"
	StepDefault         DecisionStep = "default"
)

// ActionDecision is the single action chosen for a keyword.
type ActionDecision struct {
	ID                 uuid.UUID    `json:"id,omitempty"`
	KeywordID          string       `json:"keyword_id"`
	Action             ActionType   `json:"action"`
	Step               DecisionStep `json:"step"`
	Rationale          string       `json:"rationale"`
	SafeguardTriggered bool         `json:"safeguard_triggered"`
	DecidedAtVersionID int64        `json:"decided_at_version_id"`
	CreatedAt          time.Time    `json:"created_at,omitempty"`
}
