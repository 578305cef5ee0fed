// Package fallbackgen produces deterministic rule-based artifacts when
// provider output is unavailable or fails validation. It never makes
// network calls.
package fallbackgen

import (
	"fmt"
	"math"
	"sort"

	"planforge/internal/prompt"
	"planforge/pkg/types"
)

const (
	generatedBy = "fallback"

	// Envelope aspect ratio used to derive site dimensions from area
	aspectRatio = 1.4

	// Wall catalog
	exteriorThicknessMM  = 250
	masonryThicknessMM   = 200
	partitionThicknessMM = 100
	wallHeightMM         = 2600

	doorWidthMM    = 900
	doorHeightMM   = 2100
	windowWidthMM  = 1200
	windowHeightMM = 1400
	windowSillMM   = 900
)

// Default room program used when the request supplies none, fractions
// of total area
var defaultProgram = []programEntry{
	{roomType: "living", fraction: 0.35},
	{roomType: "bedroom", fraction: 0.25},
	{roomType: "kitchen", fraction: 0.15},
	{roomType: "bathroom", fraction: 0.10},
	{roomType: "corridor", fraction: 0.15},
}

type programEntry struct {
	roomType string
	fraction float64
}

// Regions is the subset of the region registry the generator needs
type Regions interface {
	Resolve(region string) *prompt.RegionProfile
}

// Generator builds deterministic fallback artifacts
type Generator struct {
	regions Regions
}

// NewGenerator creates a fallback generator
func NewGenerator(regions Regions) *Generator {
	return &Generator{regions: regions}
}

// Generate produces the fallback artifact for a command. The same
// command always yields the same artifact.
func (g *Generator) Generate(cmd *types.AICommand, reason string) (interface{}, float64) {
	switch cmd.TaskType {
	case types.TaskRoom:
		return g.generateRoom(cmd, reason)
	case types.TaskValidate:
		return g.generateCompliance(cmd, reason)
	default:
		return g.generateLayout(cmd, reason)
	}
}

// generateLayout runs the grid placement algorithm
func (g *Generator) generateLayout(cmd *types.AICommand, reason string) (*types.LayoutArtifact, float64) {
	tc, err := prompt.DecodeContext(cmd.Context)
	if err != nil {
		tc = &prompt.TaskContext{}
	}

	totalArea := tc.TotalAreaM2
	if totalArea <= 0 && tc.SiteWidthM > 0 && tc.SiteLengthM > 0 {
		totalArea = tc.SiteWidthM * tc.SiteLengthM * 0.6
	}
	if totalArea <= 0 {
		totalArea = 100
	}

	program := buildProgram(tc, totalArea)

	// Envelope from total area and fixed aspect ratio, millimeters
	widthMM := int(math.Round(math.Sqrt(totalArea*aspectRatio) * 1000))
	lengthMM := int(math.Round(math.Sqrt(totalArea/aspectRatio) * 1000))

	// Grid placement: ceil(sqrt(n)) columns
	n := len(program)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW := widthMM / cols
	cellL := lengthMM / rows

	layout := &types.LayoutArtifact{
		Rooms:               make([]types.Room, 0, n),
		Walls:               make([]types.Wall, 0, n+4),
		Doors:               make([]types.Door, 0, n),
		Windows:             make([]types.Window, 0, 4),
		Confidence:          confidenceFor(cmd),
		RequiresHumanReview: true,
		GeneratedBy:         generatedBy,
		FallbackReason:      reason,
	}

	// Exterior walls
	corners := []types.Point3{
		{X: 0, Y: 0}, {X: widthMM, Y: 0},
		{X: widthMM, Y: lengthMM}, {X: 0, Y: lengthMM},
	}
	for i := 0; i < 4; i++ {
		layout.Walls = append(layout.Walls, types.Wall{
			ID:          fmt.Sprintf("wall_ext_%d", i+1),
			Start:       corners[i],
			End:         corners[(i+1)%4],
			ThicknessMM: exteriorThicknessMM,
			HeightMM:    wallHeightMM,
			Type:        "exterior",
		})
	}

	// One window per exterior face
	faceCenters := []struct {
		wallID string
		pos    int
	}{
		{"wall_ext_1", widthMM / 2},
		{"wall_ext_2", lengthMM / 2},
		{"wall_ext_3", widthMM / 2},
		{"wall_ext_4", lengthMM / 2},
	}
	for i, face := range faceCenters {
		layout.Windows = append(layout.Windows, types.Window{
			ID:         fmt.Sprintf("window_%d", i+1),
			WallID:     face.wallID,
			PositionMM: face.pos,
			WidthMM:    windowWidthMM,
			HeightMM:   windowHeightMM,
			SillMM:     windowSillMM,
			Type:       "casement",
		})
	}

	typeCounts := make(map[string]int, len(program))
	for i, entry := range program {
		col := i % cols
		row := i / cols
		typeCounts[entry.roomType]++

		targetArea := totalArea * entry.fraction
		// Scale the cell toward the target area while staying inside it
		scale := math.Sqrt(targetArea * 1e6 / float64(cellW*cellL))
		if scale > 1 {
			scale = 1
		}
		roomW := int(float64(cellW) * scale)
		roomL := int(float64(cellL) * scale)

		room := types.Room{
			ID:     fmt.Sprintf("room_%d", i+1),
			Name:   displayName(entry.roomType, typeCounts[entry.roomType]),
			Type:   entry.roomType,
			AreaM2: round2(float64(roomW) * float64(roomL) / 1e6),
			Position: types.Position{
				XMM: col * cellW,
				YMM: row * cellL,
			},
			Dimensions: types.Dimensions{W: roomW, L: roomL, H: wallHeightMM},
		}
		layout.Rooms = append(layout.Rooms, room)

		if entry.roomType == "corridor" {
			continue
		}

		// Interior wall on the room's inner edge, masonry for wet rooms
		wallType := "partition"
		thickness := partitionThicknessMM
		if entry.roomType == "bathroom" {
			wallType = "masonry"
			thickness = masonryThicknessMM
		}
		wallID := fmt.Sprintf("wall_int_%d", i+1)
		layout.Walls = append(layout.Walls, types.Wall{
			ID:          wallID,
			Start:       types.Point3{X: room.Position.XMM, Y: room.Position.YMM + roomL},
			End:         types.Point3{X: room.Position.XMM + roomW, Y: room.Position.YMM + roomL},
			ThicknessMM: thickness,
			HeightMM:    wallHeightMM,
			Type:        wallType,
		})

		// One door per room opening onto the corridor
		layout.Doors = append(layout.Doors, types.Door{
			ID:         fmt.Sprintf("door_%d", i+1),
			WallID:     wallID,
			PositionMM: roomW / 2,
			WidthMM:    doorWidthMM,
			HeightMM:   doorHeightMM,
			Type:       "interior",
		})
	}

	return layout, layout.Confidence
}

// buildProgram derives the room program from the request, falling back
// to the default fractions
func buildProgram(tc *prompt.TaskContext, totalArea float64) []programEntry {
	if tc.Bedrooms <= 0 && tc.Bathrooms <= 0 {
		return defaultProgram
	}

	bedrooms := tc.Bedrooms
	if bedrooms <= 0 {
		bedrooms = 1
	}
	bathrooms := tc.Bathrooms
	if bathrooms <= 0 {
		bathrooms = 1
	}

	// Fixed shares for shared spaces, the rest split across bedrooms
	program := []programEntry{
		{roomType: "living", fraction: 0.30},
		{roomType: "kitchen", fraction: 0.12},
		{roomType: "corridor", fraction: 0.12},
	}
	bathShare := 0.08
	for i := 0; i < bathrooms; i++ {
		program = append(program, programEntry{roomType: "bathroom", fraction: bathShare})
	}
	remaining := 1.0 - 0.54 - bathShare*float64(bathrooms)
	if remaining < 0.1 {
		remaining = 0.1
	}
	for i := 0; i < bedrooms; i++ {
		program = append(program, programEntry{roomType: "bedroom", fraction: remaining / float64(bedrooms)})
	}

	// Stable order: by type then insertion position
	sort.SliceStable(program, func(i, j int) bool { return program[i].roomType < program[j].roomType })
	return program
}

// generateRoom emits a furniture arrangement from the per-type catalog
func (g *Generator) generateRoom(cmd *types.AICommand, reason string) (*types.RoomArtifact, float64) {
	tc, err := prompt.DecodeContext(cmd.Context)
	if err != nil {
		tc = &prompt.TaskContext{}
	}

	roomType := tc.RoomType
	if roomType == "" {
		roomType = "bedroom"
	}

	dims := types.Dimensions{W: 4000, L: 3500, H: wallHeightMM}
	if tc.TotalAreaM2 > 0 {
		side := math.Sqrt(tc.TotalAreaM2 * 1e6)
		dims.W = int(side * math.Sqrt(aspectRatio))
		dims.L = int(side / math.Sqrt(aspectRatio))
	}

	artifact := &types.RoomArtifact{
		Dimensions:          dims,
		Furniture:           furnitureCatalog(roomType, dims),
		Lighting:            []string{"ceiling fixture", "wall sconce near entry"},
		Materials:           materialCatalog(roomType),
		Confidence:          confidenceFor(cmd),
		RequiresHumanReview: true,
		GeneratedBy:         generatedBy,
		FallbackReason:      reason,
	}
	return artifact, artifact.Confidence
}

// generateCompliance reduces the code check to area minima and door widths
func (g *Generator) generateCompliance(cmd *types.AICommand, reason string) (*types.ValidationArtifact, float64) {
	locale := prompt.ResolveLocale(cmd.Locale)
	profile := g.regions.Resolve(locale.Region)

	warnings := []string{
		"rule-based compliance check only; professional review required",
	}
	if profile != nil {
		for _, kv := range sortedSizes(profile.MinRoomSizesM2) {
			warnings = append(warnings,
				fmt.Sprintf("verify %s area meets the regional minimum %.1f m2", kv.key, kv.value))
		}
		warnings = append(warnings,
			fmt.Sprintf("verify door clear widths of at least %dmm on accessible routes", doorWidthMM))
	}

	artifact := &types.ValidationArtifact{
		IsValid:             false,
		ComplianceScore:     0.5,
		Errors:              []string{},
		Warnings:            warnings,
		Confidence:          confidenceFor(cmd),
		RequiresHumanReview: true,
		GeneratedBy:         generatedBy,
		FallbackReason:      reason,
	}
	return artifact, artifact.Confidence
}

// confidenceFor is deterministic per command: simple requests get the
// top of the 0.6-0.7 band, high complexity the bottom
func confidenceFor(cmd *types.AICommand) float64 {
	switch cmd.Complexity {
	case types.ComplexitySimple:
		return 0.7
	case types.ComplexityHigh:
		return 0.6
	default:
		return 0.65
	}
}

func furnitureCatalog(roomType string, dims types.Dimensions) []types.FurnitureItem {
	switch roomType {
	case "living":
		return []types.FurnitureItem{
			{Name: "sofa", Dimensions: types.Dimensions{W: 2200, L: 900, H: 850}, Position: types.Position{XMM: 200, YMM: 200}},
			{Name: "coffee table", Dimensions: types.Dimensions{W: 1200, L: 600, H: 450}, Position: types.Position{XMM: 600, YMM: 1300}},
			{Name: "tv unit", Dimensions: types.Dimensions{W: 1800, L: 450, H: 500}, Position: types.Position{XMM: 200, YMM: dims.L - 650}},
		}
	case "kitchen":
		return []types.FurnitureItem{
			{Name: "counter run", Dimensions: types.Dimensions{W: dims.W - 400, L: 600, H: 900}, Position: types.Position{XMM: 200, YMM: 200}},
			{Name: "refrigerator", Dimensions: types.Dimensions{W: 700, L: 700, H: 1900}, Position: types.Position{XMM: 200, YMM: dims.L - 900}},
		}
	case "bathroom":
		return []types.FurnitureItem{
			{Name: "washbasin", Dimensions: types.Dimensions{W: 600, L: 450, H: 850}, Position: types.Position{XMM: 200, YMM: 200}},
			{Name: "wc", Dimensions: types.Dimensions{W: 400, L: 650, H: 400}, Position: types.Position{XMM: 1000, YMM: 200}},
			{Name: "shower", Dimensions: types.Dimensions{W: 900, L: 900, H: 2000}, Position: types.Position{XMM: 200, YMM: dims.L - 1100}},
		}
	default: // bedroom
		return []types.FurnitureItem{
			{Name: "bed", Dimensions: types.Dimensions{W: 1600, L: 2000, H: 500}, Position: types.Position{XMM: 200, YMM: 200}},
			{Name: "wardrobe", Dimensions: types.Dimensions{W: 1800, L: 600, H: 2200}, Position: types.Position{XMM: 200, YMM: dims.L - 800}},
			{Name: "nightstand", Dimensions: types.Dimensions{W: 450, L: 400, H: 550}, Position: types.Position{XMM: 1900, YMM: 200}},
		}
	}
}

func materialCatalog(roomType string) map[string]string {
	switch roomType {
	case "bathroom":
		return map[string]string{"floor": "ceramic tile", "walls": "ceramic tile", "ceiling": "moisture-resistant paint"}
	case "kitchen":
		return map[string]string{"floor": "porcelain tile", "walls": "washable paint", "ceiling": "paint"}
	default:
		return map[string]string{"floor": "engineered wood", "walls": "paint", "ceiling": "paint"}
	}
}

// displayName names a room by its ordinal among rooms of the same type
func displayName(roomType string, ordinal int) string {
	switch roomType {
	case "living":
		return "Living Room"
	case "kitchen":
		return "Kitchen"
	case "bathroom":
		if ordinal == 1 {
			return "Bathroom"
		}
		return fmt.Sprintf("Bathroom %d", ordinal)
	case "corridor":
		return "Corridor"
	case "bedroom":
		return fmt.Sprintf("Bedroom %d", ordinal)
	default:
		return fmt.Sprintf("Room %d", ordinal)
	}
}

type sizePair struct {
	key   string
	value float64
}

func sortedSizes(m map[string]float64) []sizePair {
	pairs := make([]sizePair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, sizePair{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return pairs
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
