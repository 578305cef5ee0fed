package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"planforge/internal/apperrors"
	"planforge/internal/logging"
	"planforge/internal/storage"
	"planforge/pkg/types"
)

// CommandProcessor is the orchestration core each AI-backed step calls
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, cmd *types.AICommand) (*types.AICommandResult, error)
}

// DocumentIndexer feeds project documents through parsing and RAG
// indexing; nil when no document pipeline is wired
type DocumentIndexer interface {
	IndexProjectDocuments(ctx context.Context, tenantID, projectID string) (int, error)
}

// StepOutput is what a completed step publishes into the artifact bag
type StepOutput struct {
	CorrelationID       string                 `json:"correlation_id,omitempty"`
	Artifact            interface{}            `json:"artifact,omitempty"`
	Confidence          float64                `json:"confidence,omitempty"`
	FallbackUsed        bool                   `json:"fallback_used,omitempty"`
	RequiresHumanReview bool                   `json:"requires_human_review,omitempty"`
	Details             map[string]interface{} `json:"details,omitempty"`
	// Sources maps dependency step kinds to the correlation ids whose
	// artifacts this step consumed
	Sources map[string]string `json:"sources,omitempty"`
}

// Engine executes workflow projects step by step
type Engine struct {
	processor CommandProcessor
	documents DocumentIndexer
	store     storage.ProjectStore
	logger    logging.Logger
}

// NewEngine wires the workflow engine. documents may be nil.
func NewEngine(processor CommandProcessor, documents DocumentIndexer, store storage.ProjectStore, logger logging.Logger) *Engine {
	return &Engine{
		processor: processor,
		documents: documents,
		store:     store,
		logger:    logger.WithComponent("workflow"),
	}
}

// CreateProject classifies the request and instantiates the template
func (e *Engine) CreateProject(ctx context.Context, tenantID string, tier types.SubscriptionTier, requestFields map[string]interface{}) (*types.Project, error) {
	if tenantID == "" {
		return nil, apperrors.Validation("tenant_id", "must not be empty")
	}
	if tier == "" {
		tier = types.TierFree
	}

	complexity := Classify(requestFields)
	projectID := "proj_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]

	project := &types.Project{
		ProjectID:     projectID,
		TenantID:      tenantID,
		Tier:          tier,
		RequestFields: requestFields,
		Complexity:    complexity,
		Status:        types.ProjectCreated,
		Steps:         instantiate(projectID, complexity),
		ArtifactBag:   make(map[types.StepKind]interface{}),
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "project created",
		"project_id", projectID,
		"complexity", string(complexity),
		"steps", len(project.Steps),
	)
	return project, nil
}

// GetProject returns the current project state
func (e *Engine) GetProject(ctx context.Context, projectID string) (*types.Project, error) {
	return e.store.GetProject(ctx, projectID)
}

// Execute runs the project from its first step
func (e *Engine) Execute(ctx context.Context, projectID string) (*types.Project, error) {
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == types.ProjectRunning {
		return nil, apperrors.New(apperrors.CodeValidation, "project is already running").
			WithContext("project_id", projectID)
	}

	return e.run(ctx, project, 0)
}

// RetryStep resets one failed step and resumes the workflow from its
// index. Accumulated attempt counts are kept.
func (e *Engine) RetryStep(ctx context.Context, projectID, stepID string) (*types.Project, error) {
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range project.Steps {
		if project.Steps[i].StepID == stepID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, "step not found").
			WithContext("step_id", stepID)
	}
	step := &project.Steps[index]
	if step.Status != types.StepFailed && step.Status != types.StepSkipped {
		return nil, apperrors.New(apperrors.CodeValidation, "only failed or skipped steps can be retried").
			WithContext("step_id", stepID).
			WithContext("status", string(step.Status))
	}

	step.Status = types.StepPending
	step.Error = ""
	step.ActualMinutes = 0
	// Steps after the retried one re-run as well
	for i := index + 1; i < len(project.Steps); i++ {
		if project.Steps[i].Status == types.StepSkipped || project.Steps[i].Status == types.StepFailed {
			project.Steps[i].Status = types.StepPending
			project.Steps[i].Error = ""
		}
	}

	e.logger.InfoContext(ctx, "retrying step",
		"project_id", projectID, "step_id", stepID, "kind", string(step.Kind))
	return e.run(ctx, project, index)
}

// run executes steps from fromIndex in declared order, persisting after
// every step
func (e *Engine) run(ctx context.Context, project *types.Project, fromIndex int) (*types.Project, error) {
	project.Status = types.ProjectRunning
	if project.StartedAt == nil {
		now := time.Now().UTC()
		project.StartedAt = &now
	}
	if err := e.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}

	for i := fromIndex; i < len(project.Steps); i++ {
		if ctx.Err() != nil {
			e.finish(project)
			_ = e.store.SaveProject(context.WithoutCancel(ctx), project)
			return project, apperrors.Wrap(apperrors.CodeNetworkTimeout, "workflow canceled", ctx.Err())
		}

		step := &project.Steps[i]
		if step.Status == types.StepCompleted {
			continue
		}

		if unmet := e.unmetDeps(project, step); len(unmet) > 0 {
			step.Status = types.StepSkipped
			step.Error = fmt.Sprintf("unmet dependencies: %s", strings.Join(unmet, ", "))
			e.logger.WarnContext(ctx, "skipping step",
				"project_id", project.ProjectID,
				"step_id", step.StepID,
				"unmet", strings.Join(unmet, ","),
			)
			_ = e.store.SaveProject(ctx, project)
			continue
		}

		if err := e.runStepWithRetry(ctx, project, step); err != nil {
			step.Status = types.StepFailed
			step.Error = err.Error()
			project.Status = types.ProjectFailed
			_ = e.store.SaveProject(ctx, project)
			e.logger.ErrorContext(ctx, "step failed, stopping workflow",
				"project_id", project.ProjectID,
				"step_id", step.StepID,
				"kind", string(step.Kind),
				"attempts", step.Attempts,
				"error", err.Error(),
			)
			return project, nil
		}
		_ = e.store.SaveProject(ctx, project)
	}

	e.finish(project)
	if err := e.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "workflow finished",
		"project_id", project.ProjectID, "status", string(project.Status))
	return project, nil
}

// finish derives the terminal project status from its step states
func (e *Engine) finish(project *types.Project) {
	now := time.Now().UTC()
	project.CompletedAt = &now

	allCompleted := true
	anyCompleted := false
	for i := range project.Steps {
		switch project.Steps[i].Status {
		case types.StepCompleted:
			anyCompleted = true
		default:
			allCompleted = false
		}
	}
	switch {
	case allCompleted:
		project.Status = types.ProjectCompleted
	case anyCompleted:
		project.Status = types.ProjectPartiallyCompleted
	default:
		project.Status = types.ProjectFailed
	}
}

// unmetDeps lists dependency kinds without a completed instance
func (e *Engine) unmetDeps(project *types.Project, step *types.WorkflowStep) []string {
	var unmet []string
	for _, dep := range step.Deps {
		satisfied := false
		for i := range project.Steps {
			if project.Steps[i].Kind == dep && project.Steps[i].Status == types.StepCompleted {
				satisfied = true
				break
			}
		}
		if !satisfied {
			unmet = append(unmet, string(dep))
		}
	}
	return unmet
}

// runStepWithRetry gives the step its remaining attempt budget. A step
// resumed through RetryStep always gets at least one more attempt.
func (e *Engine) runStepWithRetry(ctx context.Context, project *types.Project, step *types.WorkflowStep) error {
	budget := step.MaxRetries - step.Attempts
	if budget < 1 {
		budget = 1
	}

	var lastErr error
	for try := 0; try < budget; try++ {
		step.Attempts++
		step.Status = types.StepRunning
		started := time.Now()

		output, err := e.runStep(ctx, project, step)
		step.ActualMinutes = time.Since(started).Minutes()
		if err == nil {
			step.Status = types.StepCompleted
			step.Output = output
			project.ArtifactBag[step.Kind] = output
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return err
		}
		e.logger.WarnContext(ctx, "step attempt failed",
			"project_id", project.ProjectID,
			"step_id", step.StepID,
			"attempt", step.Attempts,
			"error", err.Error(),
		)
	}
	return lastErr
}
