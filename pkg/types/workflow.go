package types

import "time"

// ProjectComplexity selects the workflow template for a project
type ProjectComplexity string

const (
	ProjectSimple   ProjectComplexity = "simple"
	ProjectStandard ProjectComplexity = "standard"
	ProjectComplex  ProjectComplexity = "complex"
)

// ProjectStatus is the lifecycle state of a workflow project
type ProjectStatus string

const (
	ProjectCreated            ProjectStatus = "created"
	ProjectRunning            ProjectStatus = "running"
	ProjectCompleted          ProjectStatus = "completed"
	ProjectPartiallyCompleted ProjectStatus = "partially_completed"
	ProjectFailed             ProjectStatus = "failed"
)

// StepKind categorizes a workflow step for dependency resolution
type StepKind string

const (
	StepParseDocs      StepKind = "parse_docs"
	StepIndexRAG       StepKind = "index_rag"
	StepAnalyzeReqs    StepKind = "analyze_reqs"
	StepAnalyzeSite    StepKind = "analyze_site"
	StepAnalyzeCodes   StepKind = "analyze_codes"
	StepGenerateLayout StepKind = "generate_layout"
	StepGenerateRooms  StepKind = "generate_rooms"
	StepStructural     StepKind = "structural_check"
	StepMEPLayout      StepKind = "mep_layout"
	StepFacadeDesign   StepKind = "facade_design"
	StepEnergyAnalysis StepKind = "energy_analysis"
	StepAccessibility  StepKind = "accessibility_check"
	StepCostEstimate   StepKind = "cost_estimate"
	StepValidate       StepKind = "validate"
	StepOptimize       StepKind = "optimize"
	StepSustainability StepKind = "sustainability_review"
	StepLightingPlan   StepKind = "lighting_plan"
	StepPrepareRevit   StepKind = "prepare_revit"
	StepFinalReview    StepKind = "final_review"
)

// StepStatus is the lifecycle state of one workflow step
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// WorkflowStep is one unit of project execution. A step transitions to
// running only when all Deps resolve to completed kinds within the project.
type WorkflowStep struct {
	StepID           string      `json:"step_id"`
	Index            int         `json:"index"`
	Kind             StepKind    `json:"kind"`
	Deps             []StepKind  `json:"deps,omitempty"`
	Status           StepStatus  `json:"status"`
	Attempts         int         `json:"attempts"`
	MaxRetries       int         `json:"max_retries"`
	EstimatedMinutes float64     `json:"estimated_minutes"`
	ActualMinutes    float64     `json:"actual_minutes"`
	Output           interface{} `json:"output,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// Project is the root of a multi-step workflow. Step outputs become
// immutable once copied into ArtifactBag.
type Project struct {
	ProjectID     string                   `json:"project_id"`
	TenantID      string                   `json:"tenant_id"`
	Tier          SubscriptionTier         `json:"subscription_tier"`
	RequestFields map[string]interface{}   `json:"request_fields"`
	Complexity    ProjectComplexity        `json:"complexity"`
	Status        ProjectStatus            `json:"status"`
	Steps         []WorkflowStep           `json:"steps"`
	ArtifactBag   map[StepKind]interface{} `json:"artifact_bag"`
	CreatedAt     time.Time                `json:"created_at"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
}

// Progress returns the completed fraction and the remaining estimate in minutes
func (p *Project) Progress() (fraction float64, etaMinutes float64) {
	if len(p.Steps) == 0 {
		return 0, 0
	}
	completed := 0
	for i := range p.Steps {
		switch p.Steps[i].Status {
		case StepCompleted:
			completed++
		case StepPending:
			etaMinutes += p.Steps[i].EstimatedMinutes
		}
	}
	return float64(completed) / float64(len(p.Steps)), etaMinutes
}
