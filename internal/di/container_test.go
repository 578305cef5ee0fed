package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/config"
	"planforge/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.URL = "file:" + filepath.Join(t.TempDir(), "planforge.db")
	cfg.Uploads.Dir = t.TempDir()
	return cfg
}

func TestNewContainer_DefaultWiring(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, container.Shutdown()) }()

	// Without external endpoints the in-process implementations serve
	assert.NotNil(t, container.Retriever)
	assert.NotNil(t, container.Coordinator)
	assert.NotNil(t, container.Workflow)
	assert.NotNil(t, container.Documents)
	assert.Len(t, container.Registry.Names(), 2, "both model classes get a provider")

	require.NoError(t, container.HealthCheck(context.Background()))
}

func TestContainer_EndToEndCommand(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = container.Shutdown() }()

	// The mock providers answer with a canned valid layout
	result, err := container.Coordinator.ProcessCommand(context.Background(), &types.AICommand{
		TenantID:   "t1",
		Tier:       types.TierProfessional,
		TaskType:   types.TaskLayout,
		Locale:     "en-US",
		PromptText: "one bedroom apartment",
		Complexity: types.ComplexityMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, result.Status)
	assert.False(t, result.FallbackUsed)
}

func TestContainer_WorkflowOverCoordinator(t *testing.T) {
	container, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = container.Shutdown() }()
	ctx := context.Background()

	project, err := container.Workflow.CreateProject(ctx, "t1", types.TierEnterprise,
		map[string]interface{}{"building_type": "house", "total_area_m2": 140.0})
	require.NoError(t, err)

	done, err := container.Workflow.Execute(ctx, project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, types.ProjectCompleted, done.Status)
}
