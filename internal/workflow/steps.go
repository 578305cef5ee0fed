package workflow

import (
	"context"
	"fmt"

	"planforge/pkg/types"
)

// stepTasks maps each AI-backed step kind to its command task type
var stepTasks = map[types.StepKind]types.TaskType{
	types.StepAnalyzeReqs:    types.TaskAnalyze,
	types.StepAnalyzeSite:    types.TaskAnalyze,
	types.StepAnalyzeCodes:   types.TaskAnalyze,
	types.StepEnergyAnalysis: types.TaskAnalyze,
	types.StepSustainability: types.TaskAnalyze,
	types.StepCostEstimate:   types.TaskAnalyze,
	types.StepGenerateLayout: types.TaskLayout,
	types.StepGenerateRooms:  types.TaskRoom,
	types.StepLightingPlan:   types.TaskRoom,
	types.StepStructural:     types.TaskValidate,
	types.StepValidate:       types.TaskValidate,
	types.StepAccessibility:  types.TaskValidate,
	types.StepFinalReview:    types.TaskValidate,
	types.StepMEPLayout:      types.TaskCustom,
	types.StepFacadeDesign:   types.TaskCustom,
	types.StepOptimize:       types.TaskCustom,
	types.StepPrepareRevit:   types.TaskCustom,
}

// stepPrompts carries the per-kind instruction given to the coordinator
var stepPrompts = map[types.StepKind]string{
	types.StepAnalyzeReqs:    "Analyze the project requirements and extract the functional program.",
	types.StepAnalyzeSite:    "Analyze the site constraints: orientation, access, setbacks and terrain.",
	types.StepAnalyzeCodes:   "Analyze the applicable building codes and list binding constraints.",
	types.StepGenerateLayout: "Generate the floor plan layout satisfying the analyzed requirements and site constraints.",
	types.StepGenerateRooms:  "Detail each room of the generated layout with furniture, lighting and materials.",
	types.StepStructural:     "Check the generated layout for structural feasibility.",
	types.StepMEPLayout:      "Propose mechanical, electrical and plumbing routing for the layout.",
	types.StepFacadeDesign:   "Design the facade treatment consistent with the layout and style.",
	types.StepEnergyAnalysis: "Estimate the energy performance of the design.",
	types.StepAccessibility:  "Check the layout against accessibility requirements.",
	types.StepLightingPlan:   "Produce a lighting plan for the detailed rooms.",
	types.StepSustainability: "Review the design for sustainability improvements.",
	types.StepCostEstimate:   "Estimate construction cost ranges for the optimized design.",
	types.StepValidate:       "Validate the layout against regulations and the requested program.",
	types.StepOptimize:       "Optimize the validated layout for circulation and daylight.",
	types.StepPrepareRevit:   "Prepare the optimized layout for BIM export.",
	types.StepFinalReview:    "Run the final consistency review over all produced artifacts.",
}

// commandComplexity maps project complexity onto command complexity
var commandComplexity = map[types.ProjectComplexity]types.Complexity{
	types.ProjectSimple:   types.ComplexitySimple,
	types.ProjectStandard: types.ComplexityMedium,
	types.ProjectComplex:  types.ComplexityHigh,
}

// runStep executes one step: document steps go through the document
// pipeline, everything else through the orchestration core
func (e *Engine) runStep(ctx context.Context, project *types.Project, step *types.WorkflowStep) (interface{}, error) {
	switch step.Kind {
	case types.StepParseDocs, types.StepIndexRAG:
		return e.runDocumentStep(ctx, project, step)
	default:
		return e.runCommandStep(ctx, project, step)
	}
}

func (e *Engine) runDocumentStep(ctx context.Context, project *types.Project, step *types.WorkflowStep) (interface{}, error) {
	count := 0
	if e.documents != nil && step.Kind == types.StepIndexRAG {
		indexed, err := e.documents.IndexProjectDocuments(ctx, project.TenantID, project.ProjectID)
		if err != nil {
			return nil, err
		}
		count = indexed
	}
	return &StepOutput{
		Details: map[string]interface{}{"documents": count},
	}, nil
}

func (e *Engine) runCommandStep(ctx context.Context, project *types.Project, step *types.WorkflowStep) (interface{}, error) {
	task, ok := stepTasks[step.Kind]
	if !ok {
		return nil, fmt.Errorf("no task mapping for step kind %q", step.Kind)
	}

	cmd := &types.AICommand{
		TenantID:   project.TenantID,
		Tier:       project.Tier,
		TaskType:   task,
		PromptText: stepPrompts[step.Kind],
		Context:    e.stepContext(project, step),
		Complexity: commandComplexity[project.Complexity],
	}

	result, err := e.processor.ProcessCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if result.Status != types.StatusCompleted {
		return nil, fmt.Errorf("command did not complete: %s", result.Status)
	}

	return &StepOutput{
		CorrelationID:       result.CorrelationID,
		Artifact:            result.Artifact,
		Confidence:          result.Confidence,
		FallbackUsed:        result.FallbackUsed,
		RequiresHumanReview: result.RequiresHumanReview,
		Sources:             e.sources(project, step),
	}, nil
}

// stepContext merges the project request fields with step provenance
func (e *Engine) stepContext(project *types.Project, step *types.WorkflowStep) map[string]interface{} {
	fields := make(map[string]interface{}, len(project.RequestFields)+2)
	for k, v := range project.RequestFields {
		fields[k] = v
	}
	fields["project_id"] = project.ProjectID
	fields["step_kind"] = string(step.Kind)
	return fields
}

// sources records which prior artifacts this step consumed
func (e *Engine) sources(project *types.Project, step *types.WorkflowStep) map[string]string {
	if len(step.Deps) == 0 {
		return nil
	}
	sources := make(map[string]string)
	for _, dep := range step.Deps {
		if id := outputCorrelationID(project.ArtifactBag[dep]); id != "" {
			sources[string(dep)] = id
		}
	}
	if len(sources) == 0 {
		return nil
	}
	return sources
}

// outputCorrelationID reads the correlation id from a bag entry, which
// is a *StepOutput in memory and a plain map after a storage round trip
func outputCorrelationID(entry interface{}) string {
	switch v := entry.(type) {
	case *StepOutput:
		return v.CorrelationID
	case map[string]interface{}:
		if id, ok := v["correlation_id"].(string); ok {
			return id
		}
	}
	return ""
}
