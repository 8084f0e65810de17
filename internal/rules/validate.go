package rules

import (
	"fmt"

	"github.com/spinelab/vertqc/internal/annot"
)

// Validate performs the semantic checks the CUE schema cannot express:
// cross-references between rules, label mapping, range groups and the
// run context. Every violation returned here is fatal.
func Validate(cfg *Config) []*ConfigError {
	var errs []*ConfigError

	if len(cfg.Settings.SpinalSequence) == 0 {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeEmptySequence,
			Field:   "settings.standard_spinal_sequence",
			Message: "the canonical spinal sequence must not be empty",
		})
	}
	inSequence := make(map[string]bool, len(cfg.Settings.SpinalSequence))
	for _, l := range cfg.Settings.SpinalSequence {
		inSequence[l] = true
	}

	resolver := cfg.Resolver()
	known := make(map[annot.View]map[string]bool, 2)
	for _, view := range []annot.View{annot.ViewAP, annot.ViewLAT} {
		known[view] = make(map[string]bool)
		for _, std := range resolver.Standards(view) {
			known[view][std] = true
		}
		for l := range inSequence {
			known[view][l] = true
		}
	}

	seen := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		field := fmt.Sprintf("rules[%s]", r.ID)

		if seen[r.ID] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeDuplicateRuleID,
				Field:   field,
				Message: "rule id declared more than once",
			})
		}
		seen[r.ID] = true

		switch r.Kind {
		case KindPointPosition:
			errs = append(errs, validatePointRule(r, field, known)...)
		case KindSegmentation:
			errs = append(errs, validateSegRule(cfg, r, field, inSequence)...)
		}
	}

	errs = append(errs, validateRunContext(cfg)...)
	return errs
}

func validatePointRule(r Rule, field string, known map[annot.View]map[string]bool) []*ConfigError {
	if r.Point == nil {
		return []*ConfigError{{
			Code:    ErrCodeMissingPayload,
			Field:   field,
			Message: "POINT_POSITION_CHECK requires a point payload",
		}}
	}

	var errs []*ConfigError
	declared := make(map[string]bool, len(r.Point.Targets))
	for _, t := range r.Point.Targets {
		declared[t.Label] = true
		if !known[r.View][t.Label] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeUnknownTarget,
				Field:   field + ".point.target_labels",
				Message: fmt.Sprintf("label %q is neither mappable for view %s nor in the spinal sequence", t.Label, r.View),
			})
		}
	}

	for i, p := range r.Point.Positions {
		pfield := fmt.Sprintf("%s.point.position_rules[%d]", field, i)
		if !declared[p.Target] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeUnknownTarget,
				Field:   pfield,
				Message: fmt.Sprintf("position target %q is not declared in target_labels", p.Target),
			})
		}
		switch p.Check {
		case CheckAbsoluteX:
			if p.Threshold <= 0 {
				errs = append(errs, &ConfigError{
					Code:    ErrCodeSchema,
					Field:   pfield,
					Message: "ABSOLUTE_X requires a positive threshold",
				})
			}
		case CheckRelativeX, CheckRelativeY:
			if p.RelativeTo == "" {
				errs = append(errs, &ConfigError{
					Code:    ErrCodeUnknownReference,
					Field:   pfield,
					Message: "relative checks require relative_to",
				})
			} else if !declared[p.RelativeTo] && !known[r.View][p.RelativeTo] {
				errs = append(errs, &ConfigError{
					Code:    ErrCodeUnknownReference,
					Field:   pfield,
					Message: fmt.Sprintf("reference %q is not a resolvable landmark for view %s", p.RelativeTo, r.View),
				})
			}
		}
	}
	return errs
}

func validateSegRule(cfg *Config, r Rule, field string, inSequence map[string]bool) []*ConfigError {
	if r.Segmentation == nil {
		return []*ConfigError{{
			Code:    ErrCodeMissingPayload,
			Field:   field,
			Message: "SEGMENTATION_COMPLETENESS requires a segmentation payload",
		}}
	}

	var errs []*ConfigError
	group, ok := cfg.RangeGroups[r.Segmentation.RequiredGroup]
	if !ok {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeUnknownGroup,
			Field:   field + ".segmentation.required_labels_group",
			Message: fmt.Sprintf("range group %q is not declared in vertebra_range_groups", r.Segmentation.RequiredGroup),
		})
	}
	for _, l := range group {
		if !inSequence[l] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeGroupNotInSequence,
				Field:   field + ".segmentation.required_labels_group",
				Message: fmt.Sprintf("group label %q is not in the spinal sequence, its order is undefined", l),
			})
		}
	}
	for _, l := range r.Segmentation.OptionalLabels {
		if !inSequence[l] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeOptionalLabel,
				Field:   field + ".segmentation.optional_labels",
				Message: fmt.Sprintf("optional label %q is not in the spinal sequence", l),
			})
		}
	}
	return errs
}

func validateRunContext(cfg *Config) []*ConfigError {
	var errs []*ConfigError
	if _, ok := cfg.PathTemplates[cfg.RunContext.StructureID]; !ok {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeUnknownTemplate,
			Field:   "run_context.structure_id",
			Message: fmt.Sprintf("structure %q has no entry in path_templates", cfg.RunContext.StructureID),
		})
	}
	if _, ok := cfg.DataStructure[cfg.RunContext.AnnotatorTool]; !ok {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeUnknownTool,
			Field:   "run_context.annotator_tool",
			Message: fmt.Sprintf("tool %q has no entry in data_structure", cfg.RunContext.AnnotatorTool),
		})
	}
	return errs
}
