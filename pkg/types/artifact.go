package types

// Structured artifacts use integer millimeters on a right-handed XY plane
// with Z up. Areas are square meters.

// Point3 is a coordinate in millimeters
type Point3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Dimensions is a width/length/height box in millimeters
type Dimensions struct {
	W int `json:"w"`
	L int `json:"l"`
	H int `json:"h"`
}

// Position locates a room origin in millimeters
type Position struct {
	XMM int `json:"x_mm"`
	YMM int `json:"y_mm"`
}

// Room is a placed room within a layout
type Room struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	AreaM2     float64    `json:"area_m2"`
	Dimensions Dimensions `json:"dimensions"`
	Position   Position   `json:"position"`
}

// Wall is a straight wall segment
type Wall struct {
	ID          string `json:"id"`
	Start       Point3 `json:"start"`
	End         Point3 `json:"end"`
	ThicknessMM int    `json:"thickness_mm"`
	HeightMM    int    `json:"height_mm"`
	Type        string `json:"type"`
}

// Door is an opening hosted by a wall
type Door struct {
	ID         string `json:"id"`
	WallID     string `json:"wall_id"`
	PositionMM int    `json:"position_mm"`
	WidthMM    int    `json:"width_mm"`
	HeightMM   int    `json:"height_mm"`
	Type       string `json:"type"`
}

// Window is a glazed opening hosted by a wall
type Window struct {
	ID         string `json:"id"`
	WallID     string `json:"wall_id"`
	PositionMM int    `json:"position_mm"`
	WidthMM    int    `json:"width_mm"`
	HeightMM   int    `json:"height_mm"`
	SillMM     int    `json:"sill_mm,omitempty"`
	Type       string `json:"type"`
}

// LayoutArtifact is the structured output of a layout task
type LayoutArtifact struct {
	Rooms               []Room   `json:"rooms"`
	Walls               []Wall   `json:"walls"`
	Doors               []Door   `json:"doors"`
	Windows             []Window `json:"windows"`
	Confidence          float64  `json:"confidence"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	GeneratedBy         string   `json:"generated_by,omitempty"`
	FallbackReason      string   `json:"fallback_reason,omitempty"`
}

// FurnitureItem is a furniture placement inside a room design
type FurnitureItem struct {
	Name       string     `json:"name"`
	Dimensions Dimensions `json:"dimensions"`
	Position   Position   `json:"position"`
}

// RoomArtifact is the structured output of a single-room design task
type RoomArtifact struct {
	Dimensions          Dimensions        `json:"dimensions"`
	Furniture           []FurnitureItem   `json:"furniture"`
	Lighting            []string          `json:"lighting"`
	Materials           map[string]string `json:"materials"`
	Confidence          float64           `json:"confidence"`
	RequiresHumanReview bool              `json:"requires_human_review"`
	GeneratedBy         string            `json:"generated_by,omitempty"`
	FallbackReason      string            `json:"fallback_reason,omitempty"`
}

// ValidationArtifact is the structured output of a compliance check task
type ValidationArtifact struct {
	IsValid             bool     `json:"is_valid"`
	ComplianceScore     float64  `json:"compliance_score"`
	Errors              []string `json:"errors"`
	Warnings            []string `json:"warnings"`
	Confidence          float64  `json:"confidence"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	GeneratedBy         string   `json:"generated_by,omitempty"`
	FallbackReason      string   `json:"fallback_reason,omitempty"`
}
