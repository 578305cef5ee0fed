package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RegionProfile carries the regional requirements injected into prompts
type RegionProfile struct {
	Region              string             `yaml:"region"`
	DisplayName         string             `yaml:"display_name"`
	BuildingCodes       []string           `yaml:"building_codes"`
	MinRoomSizesM2      map[string]float64 `yaml:"min_room_sizes_m2"`
	MinCeilingHeightMM  int                `yaml:"min_ceiling_height_mm"`
	AccessibilityNotes  []string           `yaml:"accessibility_notes"`
	CulturalPreferences []string           `yaml:"cultural_preferences"`
	SeismicZone         string             `yaml:"seismic_zone,omitempty"`
}

// Regions resolves region profiles with a configurable default
type Regions struct {
	mu            sync.RWMutex
	profiles      map[string]*RegionProfile
	defaultRegion string
}

// NewRegions creates a registry seeded with the built-in profiles
func NewRegions(defaultRegion string) *Regions {
	if defaultRegion == "" {
		defaultRegion = "TR"
	}
	r := &Regions{
		profiles:      make(map[string]*RegionProfile),
		defaultRegion: strings.ToUpper(defaultRegion),
	}
	for i := range builtinRegions {
		p := builtinRegions[i]
		r.profiles[p.Region] = &p
	}
	return r
}

// LoadDir overlays profiles from *.yaml files in dir
func (r *Regions) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read region directory %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) // #nosec G304 -- configured region dir
		if err != nil {
			return fmt.Errorf("failed to read region file %s: %w", e.Name(), err)
		}
		var profile RegionProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return fmt.Errorf("failed to parse region file %s: %w", e.Name(), err)
		}
		if profile.Region == "" {
			return fmt.Errorf("region file %s missing region code", e.Name())
		}
		profile.Region = strings.ToUpper(profile.Region)

		r.mu.Lock()
		r.profiles[profile.Region] = &profile
		r.mu.Unlock()
	}
	return nil
}

// Resolve returns the profile for a region code, falling back to the
// default region for unknown codes
func (r *Regions) Resolve(region string) *RegionProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[strings.ToUpper(region)]; ok {
		return p
	}
	if p, ok := r.profiles[r.defaultRegion]; ok {
		return p
	}
	// Registry always contains the built-ins; this covers a
	// misconfigured default
	for _, p := range r.profiles {
		return p
	}
	return nil
}

var builtinRegions = []RegionProfile{
	{
		Region:      "TR",
		DisplayName: "Turkey",
		BuildingCodes: []string{
			"Planlı Alanlar İmar Yönetmeliği",
			"Türkiye Bina Deprem Yönetmeliği (TBDY 2018)",
			"Binaların Yangından Korunması Hakkında Yönetmelik",
		},
		MinRoomSizesM2: map[string]float64{
			"bedroom":  9.0,
			"living":   12.0,
			"kitchen":  6.0,
			"bathroom": 3.0,
		},
		MinCeilingHeightMM: 2600,
		AccessibilityNotes: []string{
			"Accessible door clear width at least 900mm on accessible routes",
			"Step-free access required for common areas in new residential buildings",
		},
		CulturalPreferences: []string{
			"Separate kitchen preferred over open plan in family housing",
			"Balcony expected for each apartment unit",
		},
		SeismicZone: "high",
	},
	{
		Region:      "DE",
		DisplayName: "Germany",
		BuildingCodes: []string{
			"Musterbauordnung (MBO)",
			"DIN 18040 Barrierefreies Bauen",
			"GEG Gebäudeenergiegesetz",
		},
		MinRoomSizesM2: map[string]float64{
			"bedroom":  8.0,
			"living":   14.0,
			"kitchen":  5.5,
			"bathroom": 3.5,
		},
		MinCeilingHeightMM: 2400,
		AccessibilityNotes: []string{
			"DIN 18040-2 clear door width 800mm minimum, 900mm for wheelchair users",
			"Thresholds must not exceed 20mm",
		},
		CulturalPreferences: []string{
			"Cellar storage rooms customary in multi-family housing",
			"High thermal insulation standards expected",
		},
	},
	{
		Region:      "US",
		DisplayName: "United States",
		BuildingCodes: []string{
			"International Building Code (IBC)",
			"International Residential Code (IRC)",
			"ADA Standards for Accessible Design",
		},
		MinRoomSizesM2: map[string]float64{
			"bedroom":  6.5,
			"living":   11.0,
			"kitchen":  4.5,
			"bathroom": 2.8,
		},
		MinCeilingHeightMM: 2290,
		AccessibilityNotes: []string{
			"ADA clear door width 32 inches (815mm) minimum",
			"Accessible route slope not steeper than 1:12",
		},
		CulturalPreferences: []string{
			"Open plan kitchen and living areas preferred",
			"Walk-in closets expected in primary bedrooms",
		},
	},
	{
		Region:      "FR",
		DisplayName: "France",
		BuildingCodes: []string{
			"Code de la construction et de l'habitation",
			"RE2020 réglementation environnementale",
			"Normes PMR accessibilité",
		},
		MinRoomSizesM2: map[string]float64{
			"bedroom":  9.0,
			"living":   10.0,
			"kitchen":  5.0,
			"bathroom": 3.0,
		},
		MinCeilingHeightMM: 2300,
		AccessibilityNotes: []string{
			"PMR door clear width 830mm minimum",
			"At least one accessible bathroom per dwelling",
		},
		CulturalPreferences: []string{
			"Separate WC from bathroom where space allows",
		},
	},
	{
		Region:      "ES",
		DisplayName: "Spain",
		BuildingCodes: []string{
			"Código Técnico de la Edificación (CTE)",
			"DB-SUA Seguridad de utilización y accesibilidad",
		},
		MinRoomSizesM2: map[string]float64{
			"bedroom":  8.0,
			"living":   12.0,
			"kitchen":  5.0,
			"bathroom": 3.0,
		},
		MinCeilingHeightMM: 2500,
		AccessibilityNotes: []string{
			"CTE accessible door clear width 800mm minimum",
		},
		CulturalPreferences: []string{
			"Terraces and exterior shading valued in warm climates",
		},
	},
}
