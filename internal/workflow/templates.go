// Package workflow drives multi-step project execution: template
// selection by project complexity, dependency-ordered step execution
// with per-step retry, and progress reporting.
package workflow

import (
	"fmt"
	"strings"

	"planforge/pkg/types"
)

// defaultMaxRetries bounds re-execution of a failing step
const defaultMaxRetries = 2

type stepSpec struct {
	kind             types.StepKind
	deps             []types.StepKind
	estimatedMinutes float64
}

// simpleTemplate is the 9-step baseline every project runs
var simpleTemplate = []stepSpec{
	{kind: types.StepParseDocs, estimatedMinutes: 2},
	{kind: types.StepIndexRAG, deps: []types.StepKind{types.StepParseDocs}, estimatedMinutes: 3},
	{kind: types.StepAnalyzeReqs, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 5},
	{kind: types.StepAnalyzeSite, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 5},
	{kind: types.StepGenerateLayout, deps: []types.StepKind{types.StepAnalyzeReqs, types.StepAnalyzeSite}, estimatedMinutes: 10},
	{kind: types.StepValidate, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 4},
	{kind: types.StepOptimize, deps: []types.StepKind{types.StepValidate}, estimatedMinutes: 6},
	{kind: types.StepPrepareRevit, deps: []types.StepKind{types.StepOptimize}, estimatedMinutes: 4},
	{kind: types.StepFinalReview, deps: []types.StepKind{types.StepPrepareRevit}, estimatedMinutes: 2},
}

// standardTemplate adds regulatory analysis, room detailing, a
// structural pass and costing, 13 steps total
var standardTemplate = []stepSpec{
	{kind: types.StepParseDocs, estimatedMinutes: 3},
	{kind: types.StepIndexRAG, deps: []types.StepKind{types.StepParseDocs}, estimatedMinutes: 4},
	{kind: types.StepAnalyzeReqs, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 6},
	{kind: types.StepAnalyzeSite, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 6},
	{kind: types.StepAnalyzeCodes, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 6},
	{kind: types.StepGenerateLayout, deps: []types.StepKind{types.StepAnalyzeReqs, types.StepAnalyzeSite}, estimatedMinutes: 12},
	{kind: types.StepGenerateRooms, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 10},
	{kind: types.StepStructural, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 8},
	{kind: types.StepValidate, deps: []types.StepKind{types.StepGenerateLayout, types.StepAnalyzeCodes}, estimatedMinutes: 5},
	{kind: types.StepOptimize, deps: []types.StepKind{types.StepValidate}, estimatedMinutes: 8},
	{kind: types.StepCostEstimate, deps: []types.StepKind{types.StepOptimize}, estimatedMinutes: 5},
	{kind: types.StepPrepareRevit, deps: []types.StepKind{types.StepOptimize}, estimatedMinutes: 5},
	{kind: types.StepFinalReview, deps: []types.StepKind{types.StepPrepareRevit}, estimatedMinutes: 3},
}

// complexTemplate covers the full engineering program, 19 steps
var complexTemplate = []stepSpec{
	{kind: types.StepParseDocs, estimatedMinutes: 4},
	{kind: types.StepIndexRAG, deps: []types.StepKind{types.StepParseDocs}, estimatedMinutes: 5},
	{kind: types.StepAnalyzeReqs, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 8},
	{kind: types.StepAnalyzeSite, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 8},
	{kind: types.StepAnalyzeCodes, deps: []types.StepKind{types.StepIndexRAG}, estimatedMinutes: 8},
	{kind: types.StepGenerateLayout, deps: []types.StepKind{types.StepAnalyzeReqs, types.StepAnalyzeSite}, estimatedMinutes: 15},
	{kind: types.StepGenerateRooms, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 12},
	{kind: types.StepStructural, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 10},
	{kind: types.StepMEPLayout, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 12},
	{kind: types.StepFacadeDesign, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 10},
	{kind: types.StepEnergyAnalysis, deps: []types.StepKind{types.StepMEPLayout, types.StepFacadeDesign}, estimatedMinutes: 8},
	{kind: types.StepAccessibility, deps: []types.StepKind{types.StepGenerateLayout}, estimatedMinutes: 6},
	{kind: types.StepLightingPlan, deps: []types.StepKind{types.StepGenerateRooms}, estimatedMinutes: 6},
	{kind: types.StepSustainability, deps: []types.StepKind{types.StepEnergyAnalysis}, estimatedMinutes: 6},
	{kind: types.StepValidate, deps: []types.StepKind{types.StepGenerateLayout, types.StepAnalyzeCodes}, estimatedMinutes: 6},
	{kind: types.StepOptimize, deps: []types.StepKind{types.StepValidate}, estimatedMinutes: 10},
	{kind: types.StepCostEstimate, deps: []types.StepKind{types.StepOptimize}, estimatedMinutes: 6},
	{kind: types.StepPrepareRevit, deps: []types.StepKind{types.StepOptimize}, estimatedMinutes: 6},
	{kind: types.StepFinalReview, deps: []types.StepKind{types.StepPrepareRevit}, estimatedMinutes: 4},
}

var templates = map[types.ProjectComplexity][]stepSpec{
	types.ProjectSimple:   simpleTemplate,
	types.ProjectStandard: standardTemplate,
	types.ProjectComplex:  complexTemplate,
}

// demandingBuildingTypes push classification upward
var demandingBuildingTypes = map[string]int{
	"hospital":  2,
	"airport":   2,
	"stadium":   2,
	"mall":      2,
	"hotel":     1,
	"office":    1,
	"school":    1,
	"apartment": 1,
}

// Classify scores project request features into a template complexity
func Classify(requestFields map[string]interface{}) types.ProjectComplexity {
	score := 0

	if buildingType, ok := requestFields["building_type"].(string); ok {
		score += demandingBuildingTypes[strings.ToLower(buildingType)]
	}

	area := numberField(requestFields, "total_area_m2")
	switch {
	case area > 5000:
		score += 2
	case area > 1000:
		score++
	}

	floors := numberField(requestFields, "floors")
	switch {
	case floors > 5:
		score += 2
	case floors > 2:
		score++
	}

	if numberField(requestFields, "document_count") > 5 {
		score++
	}
	if reqs, ok := requestFields["special_requirements"].([]interface{}); ok && len(reqs) > 0 {
		score++
	}

	switch {
	case score <= 1:
		return types.ProjectSimple
	case score <= 3:
		return types.ProjectStandard
	default:
		return types.ProjectComplex
	}
}

// instantiate builds the concrete step list for a project
func instantiate(projectID string, complexity types.ProjectComplexity) []types.WorkflowStep {
	spec := templates[complexity]
	steps := make([]types.WorkflowStep, len(spec))
	for i, s := range spec {
		steps[i] = types.WorkflowStep{
			StepID:           fmt.Sprintf("%s-step-%02d", projectID, i),
			Index:            i,
			Kind:             s.kind,
			Deps:             s.deps,
			Status:           types.StepPending,
			MaxRetries:       defaultMaxRetries,
			EstimatedMinutes: s.estimatedMinutes,
		}
	}
	return steps
}

func numberField(fields map[string]interface{}, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
