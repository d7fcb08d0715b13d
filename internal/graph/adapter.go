package graph

import "rustgrapher/internal/extractor"

// FromCodeUnit converts extractor output into graph-domain Symbol.
func FromCodeUnit(unit *extractor.CodeUnit) *Symbol {
	if unit == nil {
		return nil
	}
	return &Symbol{
		ID:          unit.ID,
		Name:        unit.Name,
		DisplayName: unit.DisplayName,
		Module:      unit.ModulePath(),
		Crate:       unit.Crate,
		ImplType:    unit.ImplType,
		Trait:       unit.Trait,
		Kind:        string(unit.Kind),
		Filepath:    unit.Filepath,
		StartLine:   unit.StartLine,
		EndLine:     unit.EndLine,
		Signature:   unit.Signature,
		IsPublic:    unit.IsPublic,
		IsAsync:     unit.IsAsync,
	}
}

// FromCodeUnits converts units in order.
func FromCodeUnits(units []*extractor.CodeUnit) []*Symbol {
	out := make([]*Symbol, 0, len(units))
	for _, u := range units {
		out = append(out, FromCodeUnit(u))
	}
	return out
}
