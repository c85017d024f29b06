package planner

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genDescription yields a short alphanumeric description string for a
// generated Step or title.
func genDescription() gopter.Gen {
	return gen.AlphaString().Map(func(s string) string {
		if len(s) > 24 {
			s = s[:24]
		}
		if s == "" {
			s = "step"
		}
		return s
	})
}

// TestPlanPatchMergeSerializeParseRoundTrip validates the round-trip law:
// Plan → PlanPatch → merged Plan → serialize → parse → equals merged Plan.
func TestPlanPatchMergeSerializeParseRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("add-only patch round-trips through serialize/parse", prop.ForAll(
		func(baseTitle, newID, newDesc, afterID string) bool {
			base := &FullPlan{
				Type:  "FullPlan",
				Title: baseTitle,
				Steps: []Step{
					{ID: "base-1", Description: "first step", Status: StepDone},
					{ID: "base-2", Description: "second step", Dependencies: []string{"base-1"}, Status: StepPending},
				},
			}
			anchor := "base-1"
			if afterID != "" {
				anchor = "base-1"
			}
			if newID == "base-1" || newID == "base-2" || newID == "" {
				newID = "generated-" + newID + "-x"
			}

			patch := &PlanPatch{
				Type: "PlanPatch",
				Changes: []PatchChange{
					{Op: PatchOpAdd, AfterID: anchor, Step: &Step{ID: newID, Description: newDesc}},
				},
			}

			merged, err := MergePatch(base, patch)
			if err != nil {
				return false
			}

			raw, err := json.Marshal(merged)
			if err != nil {
				return false
			}

			parsed, err := ParseOutput(string(raw))
			if err != nil || parsed.Full == nil {
				return false
			}

			return reflect.DeepEqual(*parsed.Full, *merged)
		},
		genDescription(),
		genDescription(),
		genDescription(),
		genDescription(),
	))

	properties.Property("remove-only patch round-trips through serialize/parse", prop.ForAll(
		func(baseTitle, desc1, desc2, desc3 string) bool {
			base := &FullPlan{
				Type:  "FullPlan",
				Title: baseTitle,
				Steps: []Step{
					{ID: "s1", Description: desc1, Status: StepDone},
					{ID: "s2", Description: desc2, Dependencies: []string{"s1"}, Status: StepPending},
					{ID: "s3", Description: desc3, Dependencies: []string{"s2"}, Status: StepPending},
				},
			}
			patch := &PlanPatch{
				Type:    "PlanPatch",
				Changes: []PatchChange{{Op: PatchOpRemove, StepID: "s2"}},
			}

			merged, err := MergePatch(base, patch)
			if err != nil {
				return false
			}
			raw, err := json.Marshal(merged)
			if err != nil {
				return false
			}
			parsed, err := ParseOutput(string(raw))
			if err != nil || parsed.Full == nil {
				return false
			}
			return reflect.DeepEqual(*parsed.Full, *merged)
		},
		genDescription(),
		genDescription(),
		genDescription(),
		genDescription(),
	))

	properties.TestingRun(t)
}
