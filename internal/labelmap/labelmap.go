// Package labelmap resolves tool-specific raw labels to standardized
// medical labels.
//
// The mapping is layered: a COMMON table shared by all views, overlaid
// by a per-view table whose entries win on key collision. The merge
// happens once at construction, so resolution is a single map lookup
// and the effective tables are inspectable as plain data.
package labelmap

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/spinelab/vertqc/internal/annot"
)

// UnmappedLabelError reports a raw label absent from both the common
// and the view scope. Callers recover locally (drop or pass through);
// an unmapped label never aborts a run.
type UnmappedLabelError struct {
	Raw  string
	View annot.View
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("unmapped label %q for view %s", e.Raw, e.View)
}

// Resolver holds the effective raw->standard tables per view.
// Immutable after New; safe to share across concurrent evaluations.
type Resolver struct {
	views map[annot.View]map[string]string
}

// New builds the effective per-view tables from a common scope and
// per-view scopes. View entries override common entries on collision.
// Raw keys are NFC-normalized and whitespace-trimmed, matching the
// normalization applied at resolution time.
func New(common map[string]string, views map[annot.View]map[string]string) *Resolver {
	r := &Resolver{views: make(map[annot.View]map[string]string, 2)}
	for _, view := range []annot.View{annot.ViewAP, annot.ViewLAT} {
		effective := make(map[string]string, len(common)+len(views[view]))
		for raw, std := range common {
			effective[canonKey(raw)] = std
		}
		for raw, std := range views[view] {
			effective[canonKey(raw)] = std
		}
		r.views[view] = effective
	}
	return r
}

// Resolve maps a raw tool label to its standardized medical label for
// the given view. Returns *UnmappedLabelError when no scope has an
// entry for the label.
func (r *Resolver) Resolve(raw string, view annot.View) (string, error) {
	std, ok := r.views[view][canonKey(raw)]
	if !ok {
		return "", &UnmappedLabelError{Raw: raw, View: view}
	}
	return std, nil
}

// Standards returns the sorted, deduplicated set of standardized labels
// the given view can produce. Used by rule validation to decide whether
// a rule references a resolvable label.
func (r *Resolver) Standards(view annot.View) []string {
	seen := make(map[string]struct{})
	for _, std := range r.views[view] {
		seen[std] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for std := range seen {
		out = append(out, std)
	}
	sort.Strings(out)
	return out
}

// canonKey normalizes a raw label at the mapping boundary. Annotation
// tools emit user-typed strings, so Unicode normalization forms and
// stray whitespace must not defeat the lookup.
func canonKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
