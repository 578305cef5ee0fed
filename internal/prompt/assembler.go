package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"planforge/internal/langdetect"
	"planforge/pkg/types"
)

type roomSize struct {
	key   string
	value float64
}

// sortedPairs gives map iteration a stable order so assembled prompts
// are deterministic and cacheable
func sortedPairs(m map[string]float64) []roomSize {
	pairs := make([]roomSize, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, roomSize{key: k, value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return pairs
}

// TaskContext is the typed view of a command's free-form context map.
// Unknown keys are preserved and rendered verbatim.
type TaskContext struct {
	SiteWidthM    float64  `mapstructure:"site_width_m"`
	SiteLengthM   float64  `mapstructure:"site_length_m"`
	TotalAreaM2   float64  `mapstructure:"total_area_m2"`
	Floors        int      `mapstructure:"floors"`
	Bedrooms      int      `mapstructure:"bedrooms"`
	Bathrooms     int      `mapstructure:"bathrooms"`
	Style         string   `mapstructure:"style"`
	BudgetLevel   string   `mapstructure:"budget_level"`
	RoomType      string   `mapstructure:"room_type"`
	Orientation   string   `mapstructure:"orientation"`
	Constraints   []string `mapstructure:"constraints"`
	Accessibility bool     `mapstructure:"accessibility"`

	Extra map[string]interface{} `mapstructure:",remain"`
}

// DecodeContext converts a command context map into a TaskContext
func DecodeContext(raw map[string]interface{}) (*TaskContext, error) {
	var tc TaskContext
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &tc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build context decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode command context: %w", err)
	}
	return &tc, nil
}

// AssembledPrompt is the provider-ready prompt with its provenance
type AssembledPrompt struct {
	System          string
	User            string
	TemplateVersion string
	Language        string
	Region          string
	PassageCount    int
}

// Text joins system and user sections for providers that take a single
// prompt string
func (a *AssembledPrompt) Text() string {
	return a.System + "\n\n" + a.User
}

// Assembler builds prompts from templates, regional profiles, retrieved
// passages and request context
type Assembler struct {
	library *Library
	regions *Regions
}

// NewAssembler creates a prompt assembler
func NewAssembler(library *Library, regions *Regions) *Assembler {
	return &Assembler{library: library, regions: regions}
}

// Assemble builds the prompt for a command. Retrieved hits may be empty;
// the prompt then notes that no project documents matched. The provider
// narrows template selection to provider-specific variants when loaded;
// empty means any.
func (a *Assembler) Assemble(cmd *types.AICommand, hits []types.SearchHit, provider string) (*AssembledPrompt, error) {
	locale := ResolveLocale(cmd.Locale)
	lang := cmd.Language
	if lang == "" {
		if IsAuto(cmd.Locale) {
			lang = langdetect.Detect(cmd.PromptText)
		} else {
			lang = locale.Language
		}
	}

	tpl, err := a.library.Resolve(cmd.TaskType, lang, provider)
	if err != nil {
		return nil, err
	}

	tc, err := DecodeContext(cmd.Context)
	if err != nil {
		return nil, err
	}

	profile := a.regions.Resolve(locale.Region)

	var sb strings.Builder

	sb.WriteString("## Task\n")
	sb.WriteString(tpl.Instructions)
	sb.WriteString("\n\n")

	sb.WriteString("## Request\n")
	sb.WriteString(strings.TrimSpace(cmd.PromptText))
	sb.WriteString("\n\n")

	writeContextSection(&sb, tc, locale)
	writeRegionSection(&sb, profile)
	writePassageSection(&sb, hits)

	sb.WriteString("## Output\n")
	sb.WriteString(tpl.OutputSpec)
	sb.WriteString("\n")

	return &AssembledPrompt{
		System:          tpl.System,
		User:            sb.String(),
		TemplateVersion: tpl.Version,
		Language:        tpl.Language,
		Region:          profile.Region,
		PassageCount:    len(hits),
	}, nil
}

func writeContextSection(sb *strings.Builder, tc *TaskContext, locale ResolvedLocale) {
	var lines []string

	if tc.SiteWidthM > 0 && tc.SiteLengthM > 0 {
		lines = append(lines, fmt.Sprintf("Site dimensions: %.1fm x %.1fm", tc.SiteWidthM, tc.SiteLengthM))
	}
	if tc.TotalAreaM2 > 0 {
		lines = append(lines, fmt.Sprintf("Target floor area: %.1f m2", tc.TotalAreaM2))
	}
	if tc.Floors > 0 {
		lines = append(lines, fmt.Sprintf("Floors: %d", tc.Floors))
	}
	if tc.Bedrooms > 0 {
		lines = append(lines, fmt.Sprintf("Bedrooms: %d", tc.Bedrooms))
	}
	if tc.Bathrooms > 0 {
		lines = append(lines, fmt.Sprintf("Bathrooms: %d", tc.Bathrooms))
	}
	if tc.RoomType != "" {
		lines = append(lines, "Room type: "+tc.RoomType)
	}
	if tc.Style != "" {
		lines = append(lines, "Style: "+tc.Style)
	}
	if tc.BudgetLevel != "" {
		lines = append(lines, "Budget level: "+tc.BudgetLevel)
	}
	if tc.Orientation != "" {
		lines = append(lines, "Orientation: "+tc.Orientation)
	}
	if tc.Accessibility {
		lines = append(lines, "Accessibility: full wheelchair accessibility required")
	}
	for _, c := range tc.Constraints {
		lines = append(lines, "Constraint: "+c)
	}
	extraKeys := make([]string, 0, len(tc.Extra))
	for key := range tc.Extra {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		lines = append(lines, fmt.Sprintf("%s: %v", key, tc.Extra[key]))
	}
	if !locale.Metric {
		lines = append(lines, "Client uses imperial units; still produce millimetre coordinates")
	}

	if len(lines) == 0 {
		return
	}
	sb.WriteString("## Project parameters\n")
	for _, line := range lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeRegionSection(sb *strings.Builder, profile *RegionProfile) {
	if profile == nil {
		return
	}
	sb.WriteString(fmt.Sprintf("## Regional requirements (%s)\n", profile.DisplayName))
	for _, code := range profile.BuildingCodes {
		sb.WriteString("- Applicable code: " + code + "\n")
	}
	for _, kv := range sortedPairs(profile.MinRoomSizesM2) {
		sb.WriteString(fmt.Sprintf("- Minimum %s area: %.1f m2\n", kv.key, kv.value))
	}
	if profile.MinCeilingHeightMM > 0 {
		sb.WriteString(fmt.Sprintf("- Minimum ceiling height: %dmm\n", profile.MinCeilingHeightMM))
	}
	for _, note := range profile.AccessibilityNotes {
		sb.WriteString("- " + note + "\n")
	}
	for _, pref := range profile.CulturalPreferences {
		sb.WriteString("- Preference: " + pref + "\n")
	}
	if profile.SeismicZone != "" {
		sb.WriteString("- Seismic zone: " + profile.SeismicZone + "\n")
	}
	sb.WriteString("\n")
}

func writePassageSection(sb *strings.Builder, hits []types.SearchHit) {
	sb.WriteString("## Project documents\n")
	if len(hits) == 0 {
		sb.WriteString("No matching project documents were found; rely on the parameters and regional requirements above.\n\n")
		return
	}
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("[%d] (source %s)\n", i+1, hit.Chunk.DocID))
		sb.WriteString(strings.TrimSpace(hit.Chunk.Content))
		sb.WriteString("\n\n")
	}
}
