package fallbackgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/prompt"
	"planforge/pkg/types"
)

func newGenerator() *Generator {
	return NewGenerator(prompt.NewRegions("TR"))
}

func TestGenerate_LayoutDefaultProgram(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{TaskType: types.TaskLayout, Complexity: types.ComplexityMedium}

	artifact, confidence := gen.Generate(cmd, "provider unavailable")
	layout, ok := artifact.(*types.LayoutArtifact)
	require.True(t, ok)

	// Default program: living, bedroom, kitchen, bathroom, corridor
	assert.Len(t, layout.Rooms, 5)
	roomTypes := make(map[string]int)
	for _, room := range layout.Rooms {
		roomTypes[room.Type]++
		assert.GreaterOrEqual(t, room.AreaM2, 0.0)
	}
	assert.Equal(t, 1, roomTypes["living"])
	assert.Equal(t, 1, roomTypes["corridor"])

	assert.True(t, layout.RequiresHumanReview)
	assert.Equal(t, "fallback", layout.GeneratedBy)
	assert.Equal(t, "provider unavailable", layout.FallbackReason)
	assert.GreaterOrEqual(t, confidence, 0.6)
	assert.LessOrEqual(t, confidence, 0.7)

	// 4 exterior walls plus one interior wall per non-corridor room
	assert.Len(t, layout.Walls, 4+4)
	// One door per non-corridor room, one window per exterior face
	assert.Len(t, layout.Doors, 4)
	assert.Len(t, layout.Windows, 4)
}

func TestGenerate_LayoutIsDeterministic(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{
		TaskType:   types.TaskLayout,
		Complexity: types.ComplexityHigh,
		Context: map[string]interface{}{
			"total_area_m2": 140.0,
			"bedrooms":      3,
			"bathrooms":     2,
		},
	}

	a, _ := gen.Generate(cmd, "r")
	b, _ := gen.Generate(cmd, "r")
	assert.Equal(t, a, b)
}

func TestGenerate_LayoutRespectsRoomProgram(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{
		TaskType: types.TaskLayout,
		Context: map[string]interface{}{
			"total_area_m2": 120.0,
			"bedrooms":      3,
			"bathrooms":     2,
		},
	}

	artifact, _ := gen.Generate(cmd, "r")
	layout := artifact.(*types.LayoutArtifact)

	counts := make(map[string]int)
	for _, room := range layout.Rooms {
		counts[room.Type]++
	}
	assert.Equal(t, 3, counts["bedroom"])
	assert.Equal(t, 2, counts["bathroom"])
	assert.Equal(t, 1, counts["living"])
	assert.Equal(t, 1, counts["kitchen"])
}

func TestGenerate_LayoutRoomNamesCountPerType(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{
		TaskType: types.TaskLayout,
		Context: map[string]interface{}{
			"total_area_m2": 120.0,
			"bedrooms":      2,
			"bathrooms":     2,
		},
	}

	artifact, _ := gen.Generate(cmd, "r")
	layout := artifact.(*types.LayoutArtifact)

	names := make(map[string]bool)
	for _, room := range layout.Rooms {
		names[room.Name] = true
	}
	assert.True(t, names["Bedroom 1"], "rooms: %v", names)
	assert.True(t, names["Bedroom 2"], "rooms: %v", names)
	assert.False(t, names["Bedroom 3"], "bedroom ordinals must not count other room types")
	assert.True(t, names["Bathroom"])
	assert.True(t, names["Bathroom 2"])
}

func TestGenerate_BathroomWallsAreMasonry(t *testing.T) {
	gen := newGenerator()
	artifact, _ := gen.Generate(&types.AICommand{TaskType: types.TaskLayout}, "r")
	layout := artifact.(*types.LayoutArtifact)

	masonry := 0
	for _, wall := range layout.Walls {
		if wall.Type == "masonry" {
			masonry++
		}
	}
	// The default program carries exactly one bathroom
	assert.Equal(t, 1, masonry)
}

func TestGenerate_LayoutSatisfiesDomainRules(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{TaskType: types.TaskLayout, Complexity: types.ComplexityMedium}

	artifact, _ := gen.Generate(cmd, "validation failed")
	layout := artifact.(*types.LayoutArtifact)

	wallIDs := make(map[string]bool)
	for _, wall := range layout.Walls {
		assert.NotEqual(t, wall.Start, wall.End)
		wallIDs[wall.ID] = true
	}
	for _, door := range layout.Doors {
		assert.True(t, wallIDs[door.WallID], "door %s host wall missing", door.ID)
	}
	for _, window := range layout.Windows {
		assert.True(t, wallIDs[window.WallID], "window %s host wall missing", window.ID)
	}
}

func TestGenerate_Room(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{
		TaskType: types.TaskRoom,
		Context:  map[string]interface{}{"room_type": "bathroom"},
	}

	artifact, confidence := gen.Generate(cmd, "r")
	room, ok := artifact.(*types.RoomArtifact)
	require.True(t, ok)

	assert.NotEmpty(t, room.Furniture)
	names := make([]string, 0, len(room.Furniture))
	for _, item := range room.Furniture {
		names = append(names, item.Name)
	}
	assert.Contains(t, names, "wc")
	assert.Equal(t, "ceramic tile", room.Materials["floor"])
	assert.True(t, room.RequiresHumanReview)
	assert.GreaterOrEqual(t, confidence, 0.6)
}

func TestGenerate_Compliance(t *testing.T) {
	gen := newGenerator()
	cmd := &types.AICommand{TaskType: types.TaskValidate, Locale: "tr-TR"}

	artifact, _ := gen.Generate(cmd, "r")
	result, ok := artifact.(*types.ValidationArtifact)
	require.True(t, ok)

	assert.False(t, result.IsValid)
	assert.True(t, result.RequiresHumanReview)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, "fallback", result.GeneratedBy)
}

func TestConfidenceBand(t *testing.T) {
	gen := newGenerator()
	for _, complexity := range []types.Complexity{types.ComplexitySimple, types.ComplexityMedium, types.ComplexityHigh} {
		_, confidence := gen.Generate(&types.AICommand{TaskType: types.TaskLayout, Complexity: complexity}, "r")
		assert.GreaterOrEqual(t, confidence, 0.6)
		assert.LessOrEqual(t, confidence, 0.7)
	}
}
