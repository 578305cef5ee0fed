package validation

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"planforge/internal/prompt"
	"planforge/pkg/types"
)

// Minimum clear width on accessible routes, millimeters
const accessibleClearWidthMM = 900

// Validator runs the three validation stages: structural JSON
// extraction, per-task schema, then domain rules
type Validator struct {
	schemas         map[types.TaskType]*jsonschema.Schema
	reviewThreshold float64
}

// NewValidator creates a validator. reviewThreshold is the confidence
// below which results are flagged for human review.
func NewValidator(reviewThreshold float64) (*Validator, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Validator{schemas: schemas, reviewThreshold: reviewThreshold}, nil
}

// ReviewThreshold returns the configured confidence threshold
func (v *Validator) ReviewThreshold() float64 { return v.reviewThreshold }

// Validate parses model output and checks it for one task. The returned
// artifact is typed per task; the report's Errors being non-empty means
// the output must be rejected.
func (v *Validator) Validate(contentText string, cmd *types.AICommand, profile *prompt.RegionProfile) (interface{}, *types.ValidationReport) {
	report := &types.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	obj, err := ExtractJSON(contentText)
	if err != nil {
		report.Stage = types.StageExtraction
		report.Errors = append(report.Errors, "output contains no well-formed JSON object")
		return nil, finish(report)
	}

	if schema, ok := v.schemas[cmd.TaskType]; ok {
		if err := schema.Validate(obj); err != nil {
			report.Stage = types.StageSchema
			report.Errors = append(report.Errors, fmt.Sprintf("schema violation: %v", err))
			return nil, finish(report)
		}
	}

	artifact := decodeArtifact(obj, cmd, profile, report)
	if len(report.Errors) > 0 {
		report.Stage = types.StageDomain
		return nil, finish(report)
	}
	return artifact, finish(report)
}

// decodeArtifact converts the raw object into the task's artifact type
// and applies the domain rules
func decodeArtifact(obj map[string]interface{}, cmd *types.AICommand, profile *prompt.RegionProfile, report *types.ValidationReport) interface{} {
	raw, err := json.Marshal(obj)
	if err != nil {
		report.Errors = append(report.Errors, "failed to re-encode output")
		return nil
	}

	confidence := numberField(obj, "confidence")
	if confidence < 0 || confidence > 1 {
		report.Errors = append(report.Errors, fmt.Sprintf("confidence %.3f outside [0,1]", confidence))
		return nil
	}
	report.ConfidenceScore = confidence

	switch cmd.TaskType {
	case types.TaskLayout:
		var layout types.LayoutArtifact
		if err := json.Unmarshal(raw, &layout); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("layout does not match expected shape: %v", err))
			return nil
		}
		checkLayoutRules(&layout, cmd, profile, report)
		return &layout

	case types.TaskRoom:
		var room types.RoomArtifact
		if err := json.Unmarshal(raw, &room); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("room design does not match expected shape: %v", err))
			return nil
		}
		checkRoomRules(&room, report)
		return &room

	case types.TaskValidate:
		var result types.ValidationArtifact
		if err := json.Unmarshal(raw, &result); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("compliance result does not match expected shape: %v", err))
			return nil
		}
		if result.ComplianceScore < 0 || result.ComplianceScore > 1 {
			report.Errors = append(report.Errors, "compliance_score outside [0,1]")
			return nil
		}
		return &result

	default:
		// analyze and custom keep the raw object
		return obj
	}
}

func finish(report *types.ValidationReport) *types.ValidationReport {
	report.IsValid = len(report.Errors) == 0
	return report
}

func numberField(obj map[string]interface{}, key string) float64 {
	if f, ok := obj[key].(float64); ok {
		return f
	}
	return 0
}
