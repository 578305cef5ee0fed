package validation

import (
	"fmt"
	"strings"

	"planforge/internal/prompt"
	"planforge/pkg/types"
)

// checkLayoutRules applies the layout domain rules. Hard violations go
// to Errors; regulatory shortfalls become Warnings.
func checkLayoutRules(layout *types.LayoutArtifact, cmd *types.AICommand, profile *prompt.RegionProfile, report *types.ValidationReport) {
	wallIDs := make(map[string]bool, len(layout.Walls))
	for i := range layout.Walls {
		wall := &layout.Walls[i]
		wallIDs[wall.ID] = true
		if wall.Start == wall.End {
			report.Errors = append(report.Errors,
				fmt.Sprintf("wall %s has identical start and end points", wall.ID))
		}
		if wall.ThicknessMM < 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("wall %s has negative thickness", wall.ID))
		}
	}

	for i := range layout.Rooms {
		room := &layout.Rooms[i]
		if room.AreaM2 < 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("room %s has negative area", room.Name))
			continue
		}
		if profile != nil {
			if min, ok := profile.MinRoomSizesM2[normalizeRoomType(room.Type)]; ok && room.AreaM2 > 0 && room.AreaM2 < min {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("room %s area %.1f m2 below regional minimum %.1f m2", room.Name, room.AreaM2, min))
			}
		}
	}

	// Requested room count tolerance is ±1
	if requested := requestedRoomCount(cmd); requested > 0 {
		got := len(layout.Rooms)
		if got < requested-1 || got > requested+1 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("layout has %d rooms, requested %d", got, requested))
		}
	}

	for i := range layout.Doors {
		door := &layout.Doors[i]
		if door.WallID != "" && !wallIDs[door.WallID] {
			report.Errors = append(report.Errors,
				fmt.Sprintf("door %s references unknown wall %s", door.ID, door.WallID))
		}
		if door.WidthMM < 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("door %s has negative width", door.ID))
		} else if door.WidthMM > 0 && door.WidthMM < accessibleClearWidthMM {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("door %s width %dmm below accessible clear width %dmm", door.ID, door.WidthMM, accessibleClearWidthMM))
		}
	}

	for i := range layout.Windows {
		window := &layout.Windows[i]
		if window.WallID != "" && !wallIDs[window.WallID] {
			report.Errors = append(report.Errors,
				fmt.Sprintf("window %s references unknown wall %s", window.ID, window.WallID))
		}
		if window.WidthMM < 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("window %s has negative width", window.ID))
		}
	}
}

// checkRoomRules applies the room design rules
func checkRoomRules(room *types.RoomArtifact, report *types.ValidationReport) {
	if room.Dimensions.W < 0 || room.Dimensions.L < 0 || room.Dimensions.H < 0 {
		report.Errors = append(report.Errors, "room dimensions must be non-negative")
	}
	for i := range room.Furniture {
		item := &room.Furniture[i]
		if item.Dimensions.W < 0 || item.Dimensions.L < 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("furniture %s has negative dimensions", item.Name))
			continue
		}
		if room.Dimensions.W > 0 && room.Dimensions.L > 0 {
			if item.Position.XMM+item.Dimensions.W > room.Dimensions.W ||
				item.Position.YMM+item.Dimensions.L > room.Dimensions.L {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("furniture %s extends beyond the room envelope", item.Name))
			}
		}
	}
}

// requestedRoomCount derives the expected room count from the command
// context when the client supplied one
func requestedRoomCount(cmd *types.AICommand) int {
	if cmd.Context == nil {
		return 0
	}
	switch v := cmd.Context["room_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// normalizeRoomType maps free-form room types onto the regional
// minimum-size table keys
func normalizeRoomType(roomType string) string {
	t := strings.ToLower(strings.TrimSpace(roomType))
	switch {
	case strings.Contains(t, "bed"):
		return "bedroom"
	case strings.Contains(t, "liv") || strings.Contains(t, "salon"):
		return "living"
	case strings.Contains(t, "kitchen") || strings.Contains(t, "mutfak"):
		return "kitchen"
	case strings.Contains(t, "bath") || strings.Contains(t, "wc") || strings.Contains(t, "banyo"):
		return "bathroom"
	default:
		return t
	}
}
