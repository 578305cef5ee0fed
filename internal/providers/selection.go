package providers

import (
	"fmt"

	"planforge/pkg/types"
)

// File formats that imply CAD parsing and long-context reasoning
var cadFormats = map[string]bool{
	"dwg": true,
	"dxf": true,
	"ifc": true,
}

// Choose selects the provider and model for a command. The rules are
// evaluated in order and the first match wins, so the same command
// always yields the same selection.
func (r *Registry) Choose(cmd *types.AICommand) (Selection, error) {
	docType, _ := cmd.Context["document_type"].(string)

	switch {
	case cmd.TaskType == types.TaskAnalyze:
		return r.classWithReason(ClassPremiumComplex, "existing project analysis")

	case docType == "building_code" && cmd.Language == "tr":
		return r.classWithReason(ClassRegionalLite, "turkish regulatory fit")

	case cadFormats[cmd.FileFormat] || cmd.Complexity == types.ComplexityHigh:
		return r.classWithReason(ClassPremiumComplex, "cad parsing or high complexity")

	case cmd.Complexity == types.ComplexitySimple || cmd.TaskType == types.TaskCustom:
		return r.classWithReason(ClassRegionalLite, "cost")

	case cmd.PreferredProvider != "":
		if sel, err := r.preferred(cmd); err == nil {
			return sel, nil
		}
		// Incompatible preference falls through to the default
		return r.classWithReason(ClassPremiumComplex, "default, preference incompatible")

	default:
		return r.classWithReason(ClassPremiumComplex, "safe default")
	}
}

func (r *Registry) classWithReason(class, reason string) (Selection, error) {
	sel, err := r.ForClass(class)
	if err != nil {
		return Selection{}, err
	}
	sel.Reason = reason
	return sel, nil
}

// preferred resolves the user-preferred provider when the tenant's tier
// may use it
func (r *Registry) preferred(cmd *types.AICommand) (Selection, error) {
	p, err := r.Get(cmd.PreferredProvider)
	if err != nil {
		return Selection{}, err
	}
	if !p.SupportsTier(cmd.Tier) {
		return Selection{}, fmt.Errorf("provider %s not available for tier %s", p.Name(), cmd.Tier)
	}
	models := p.Models()
	if len(models) == 0 {
		return Selection{}, fmt.Errorf("provider %s has no models", p.Name())
	}
	return Selection{
		Provider: p.Name(),
		Model:    models[0],
		Class:    "preferred",
		Reason:   "user override",
	}, nil
}
