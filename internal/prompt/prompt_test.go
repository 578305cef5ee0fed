package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/pkg/types"
)

func TestResolveLocale(t *testing.T) {
	tests := []struct {
		locale   string
		language string
		region   string
		metric   bool
	}{
		{"tr-TR", "tr", "TR", true},
		{"de-DE", "de", "DE", true},
		{"en-US", "en", "US", false},
		{"fr", "fr", "", true},
		{"es-ES", "es", "ES", true},
		{"", "en", "", true},
		{"not a locale", "en", "", true},
		{"pt-BR", "en", "BR", true}, // unsupported language falls back
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			resolved := ResolveLocale(tt.locale)
			assert.Equal(t, tt.language, resolved.Language)
			assert.Equal(t, tt.region, resolved.Region)
			assert.Equal(t, tt.metric, resolved.Metric)
		})
	}
}

func TestLibrary_FallbackChain(t *testing.T) {
	library := DefaultLibrary()
	library.Add(&Template{
		Task:         string(types.TaskLayout),
		Language:     "tr",
		Version:      "tr-1",
		System:       "Deneyimli bir mimarsınız.",
		Instructions: "Kat planı oluşturun.",
		OutputSpec:   "JSON döndürün.",
	})

	// Exact match
	tpl, err := library.Resolve(types.TaskLayout, "tr", "")
	require.NoError(t, err)
	assert.Equal(t, "tr-1", tpl.Version)

	// Missing language falls back to English
	tpl, err = library.Resolve(types.TaskLayout, "de", "")
	require.NoError(t, err)
	assert.Equal(t, "en", tpl.Language)

	// Missing task and language
	empty := NewLibrary()
	_, err = empty.Resolve(types.TaskLayout, "en", "")
	assert.Error(t, err)
}

func TestLibrary_ProviderDimension(t *testing.T) {
	library := DefaultLibrary()
	library.Add(&Template{
		Task: string(types.TaskLayout), Language: "tr", Version: "tr-shared",
		System: "s", Instructions: "i", OutputSpec: "o",
	})
	library.Add(&Template{
		Task: string(types.TaskLayout), Language: "tr", Provider: "vertex", Version: "tr-vertex",
		System: "s", Instructions: "i", OutputSpec: "o",
	})

	// Provider-specific variant wins for its provider
	tpl, err := library.Resolve(types.TaskLayout, "tr", "vertex")
	require.NoError(t, err)
	assert.Equal(t, "tr-vertex", tpl.Version)

	// Other providers fall back to the shared template
	tpl, err = library.Resolve(types.TaskLayout, "tr", "github-models")
	require.NoError(t, err)
	assert.Equal(t, "tr-shared", tpl.Version)

	// Missing language keeps the provider preference through the chain
	library.Add(&Template{
		Task: string(types.TaskLayout), Language: "en", Provider: "vertex", Version: "en-vertex",
		System: "s", Instructions: "i", OutputSpec: "o",
	})
	tpl, err = library.Resolve(types.TaskLayout, "fr", "vertex")
	require.NoError(t, err)
	assert.Equal(t, "en-vertex", tpl.Version)
}

func TestLibrary_LoadDir(t *testing.T) {
	dir := t.TempDir()
	content := `task: layout
language: de
version: "de-2"
system: "Sie sind ein erfahrener Architekt."
instructions: "Erstellen Sie einen Grundriss."
output_spec: "Geben Sie JSON zurück."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout_de.yaml"), []byte(content), 0o600))

	library := NewLibrary()
	require.NoError(t, library.LoadDir(dir))
	assert.Equal(t, 1, library.Len())

	tpl, err := library.Resolve(types.TaskLayout, "de", "")
	require.NoError(t, err)
	assert.Equal(t, "de-2", tpl.Version)
}

func TestRegions_ResolveWithDefault(t *testing.T) {
	regions := NewRegions("TR")

	assert.Equal(t, "DE", regions.Resolve("de").Region)
	assert.Equal(t, "TR", regions.Resolve("").Region)
	assert.Equal(t, "TR", regions.Resolve("ZZ").Region)
}

func TestRegions_LoadDirOverlay(t *testing.T) {
	dir := t.TempDir()
	content := `region: TR
display_name: Turkey (updated)
building_codes:
  - Updated code
min_room_sizes_m2:
  bedroom: 10.5
min_ceiling_height_mm: 2700
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tr.yaml"), []byte(content), 0o600))

	regions := NewRegions("TR")
	require.NoError(t, regions.LoadDir(dir))

	profile := regions.Resolve("TR")
	assert.Equal(t, "Turkey (updated)", profile.DisplayName)
	assert.Equal(t, 10.5, profile.MinRoomSizesM2["bedroom"])
	assert.Equal(t, 2700, profile.MinCeilingHeightMM)
}

func TestDecodeContext(t *testing.T) {
	tc, err := DecodeContext(map[string]interface{}{
		"site_width_m":  "25.5", // weakly typed input
		"site_length_m": 40,
		"floors":        2,
		"bedrooms":      3,
		"style":         "modern",
		"accessibility": true,
		"plot_slope":    "gentle south-facing",
	})
	require.NoError(t, err)

	assert.Equal(t, 25.5, tc.SiteWidthM)
	assert.Equal(t, 40.0, tc.SiteLengthM)
	assert.Equal(t, 2, tc.Floors)
	assert.True(t, tc.Accessibility)
	assert.Equal(t, "gentle south-facing", tc.Extra["plot_slope"])
}

func TestAssembler_Assemble(t *testing.T) {
	assembler := NewAssembler(DefaultLibrary(), NewRegions("TR"))

	cmd := &types.AICommand{
		CorrelationID: "PF_20260826120000_abcd1234",
		TaskType:      types.TaskLayout,
		Locale:        "tr-TR",
		PromptText:    "Three bedroom single family house on a sloped plot",
		Context: map[string]interface{}{
			"site_width_m":  20.0,
			"site_length_m": 30.0,
			"bedrooms":      3,
		},
	}

	hits := []types.SearchHit{
		{
			Chunk: types.DocumentChunk{
				DocID:   "code-tr-1",
				Content: "Madde 5: Yatak odası minimum alanı 9 metrekaredir.",
			},
			Score: 0.9,
		},
	}

	assembled, err := assembler.Assemble(cmd, hits, "")
	require.NoError(t, err)

	assert.NotEmpty(t, assembled.System)
	assert.Contains(t, assembled.User, "Three bedroom single family house")
	assert.Contains(t, assembled.User, "Site dimensions: 20.0m x 30.0m")
	assert.Contains(t, assembled.User, "Madde 5")
	assert.Contains(t, assembled.User, "Deprem") // Turkish regional codes injected
	assert.Equal(t, "TR", assembled.Region)
	assert.Equal(t, 1, assembled.PassageCount)

	// Assembly is deterministic for identical input
	again, err := assembler.Assemble(cmd, hits, "")
	require.NoError(t, err)
	assert.Equal(t, assembled.User, again.User)
}

func TestAssembler_NoHitsNote(t *testing.T) {
	assembler := NewAssembler(DefaultLibrary(), NewRegions("TR"))

	assembled, err := assembler.Assemble(&types.AICommand{
		TaskType:   types.TaskCustom,
		Locale:     "en-US",
		PromptText: "Suggest a furniture arrangement",
	}, nil, "")
	require.NoError(t, err)

	assert.Contains(t, assembled.User, "No matching project documents")
	assert.Zero(t, assembled.PassageCount)
}

func TestAssembler_CommandLanguageOverridesLocale(t *testing.T) {
	library := DefaultLibrary()
	library.Add(&Template{
		Task: string(types.TaskLayout), Language: "de", Version: "de-1",
		System: "s", Instructions: "i", OutputSpec: "o",
	})
	assembler := NewAssembler(library, NewRegions("TR"))

	assembled, err := assembler.Assemble(&types.AICommand{
		TaskType:   types.TaskLayout,
		Locale:     "en-US",
		Language:   "de",
		PromptText: "Grundriss bitte",
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "de", assembled.Language)
}

func TestAssembler_AutoLocaleDetectsLanguage(t *testing.T) {
	library := DefaultLibrary()
	library.Add(&Template{
		Task: string(types.TaskLayout), Language: "tr", Version: "tr-1",
		System: "Deneyimli bir mimarsınız.", Instructions: "Kat planı oluşturun.", OutputSpec: "JSON döndürün.",
	})
	assembler := NewAssembler(library, NewRegions("TR"))

	assembled, err := assembler.Assemble(&types.AICommand{
		TaskType:   types.TaskLayout,
		Locale:     "auto",
		PromptText: "Bu bina için üç yatak odalı bir kat planı oluştur, salon güney cepheye baksın.",
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "tr", assembled.Language)
	assert.Contains(t, assembled.User, "Kat planı oluşturun.")

	// English prompt under auto keeps the English template
	assembled, err = assembler.Assemble(&types.AICommand{
		TaskType:   types.TaskLayout,
		Locale:     "auto",
		PromptText: "Generate a three bedroom floor plan with the living room facing south.",
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "en", assembled.Language)

	// An explicit command language still overrides detection
	assembled, err = assembler.Assemble(&types.AICommand{
		TaskType:   types.TaskLayout,
		Locale:     "auto",
		Language:   "en",
		PromptText: "Bu bina için kat planı oluştur.",
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "en", assembled.Language)
}
