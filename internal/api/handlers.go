package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"planforge/internal/apperrors"
	"planforge/internal/correlation"
	"planforge/internal/di"
	"planforge/pkg/types"
)

// Handlers binds the HTTP surface to the container's services
type Handlers struct {
	container *di.Container
}

// NewHandlers creates the handler set
func NewHandlers(container *di.Container) *Handlers {
	return &Handlers{container: container}
}

// commandRequest is the POST /ai/commands body
type commandRequest struct {
	TenantID          string                 `json:"tenant_id"`
	Tier              types.SubscriptionTier `json:"subscription_tier,omitempty"`
	TaskType          types.TaskType         `json:"task_type"`
	Locale            string                 `json:"locale,omitempty"`
	Prompt            string                 `json:"prompt"`
	Context           map[string]interface{} `json:"context,omitempty"`
	Complexity        types.Complexity       `json:"complexity,omitempty"`
	FileFormat        string                 `json:"file_format,omitempty"`
	Language          string                 `json:"language,omitempty"`
	PreferredProvider string                 `json:"preferred_provider,omitempty"`
}

func (req *commandRequest) toCommand(correlationID string) *types.AICommand {
	return &types.AICommand{
		CorrelationID:     correlationID,
		TenantID:          req.TenantID,
		Tier:              req.Tier,
		TaskType:          req.TaskType,
		Locale:            req.Locale,
		PromptText:        req.Prompt,
		Context:           req.Context,
		Complexity:        req.Complexity,
		FileFormat:        req.FileFormat,
		Language:          req.Language,
		PreferredProvider: req.PreferredProvider,
	}
}

// handleCommand processes a generic AI command
func (h *Handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.process(w, r, &req)
}

// handleLayout is the layout-specific convenience endpoint
func (h *Handlers) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.TaskType = types.TaskLayout
	h.process(w, r, &req)
}

func (h *Handlers) process(w http.ResponseWriter, r *http.Request, req *commandRequest) {
	cmd := req.toCommand(correlation.FromContext(r.Context()))
	result, err := h.container.Coordinator.ProcessCommand(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetCommand serves a previously computed result
func (h *Handlers) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	result, err := h.container.Coordinator.GetResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUploadDocument accepts a multipart document upload
func (h *Handlers) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	maxMemory := int64(10 << 20)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeValidation, "invalid multipart form", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeValidation, "missing file field", err))
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.container.Documents.Upload(
		r.Context(),
		r.FormValue("tenant_id"),
		r.FormValue("project_id"),
		header.Filename,
		r.FormValue("document_type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// handleListDocuments lists a tenant's documents
func (h *Handlers) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, r, apperrors.Validation("tenant_id", "query parameter is required"))
		return
	}
	docs, err := h.container.Documents.List(r.Context(), tenantID, r.URL.Query().Get("project_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleDeleteDocument removes a document everywhere
func (h *Handlers) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.container.Documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}

// projectRequest is the POST /projects body
type projectRequest struct {
	TenantID      string                 `json:"tenant_id"`
	Tier          types.SubscriptionTier `json:"subscription_tier,omitempty"`
	RequestFields map[string]interface{} `json:"request_fields"`
}

// handleCreateProject classifies and creates a workflow project
func (h *Handlers) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.container.Workflow.CreateProject(r.Context(), req.TenantID, req.Tier, req.RequestFields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// handleExecuteProject runs the project workflow to its terminal state
func (h *Handlers) handleExecuteProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.container.Workflow.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// handleRetryStep resets one failed step and resumes the workflow
func (h *Handlers) handleRetryStep(w http.ResponseWriter, r *http.Request) {
	project, err := h.container.Workflow.RetryStep(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// projectStatus is the GET /projects/{id}/status payload
type projectStatus struct {
	ProjectID  string                  `json:"project_id"`
	Status     types.ProjectStatus     `json:"status"`
	Complexity types.ProjectComplexity `json:"complexity"`
	Progress   float64                 `json:"progress"`
	ETAMinutes float64                 `json:"eta_minutes"`
	Steps      []types.WorkflowStep    `json:"steps"`
}

// handleProjectStatus reports progress and per-step state
func (h *Handlers) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	project, err := h.container.Workflow.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	fraction, eta := project.Progress()
	writeJSON(w, http.StatusOK, projectStatus{
		ProjectID:  project.ProjectID,
		Status:     project.Status,
		Complexity: project.Complexity,
		Progress:   fraction,
		ETAMinutes: eta,
		Steps:      project.Steps,
	})
}

// handleHealth aggregates dependency health
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.container.HealthCheck(r.Context()); err != nil {
		apperrors.Wrap(apperrors.CodeModelUnavailable, "dependency unhealthy", err).
			WithCorrelationID(correlation.FromContext(r.Context())).
			WriteHTTP(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats exposes operational counters
func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cache_l1": h.container.Cache.L1Stats(),
		"breakers": h.container.Dispatcher.BreakerStats(),
	})
}
