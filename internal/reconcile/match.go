package reconcile

import (
	"strings"

	"triage/internal/identity"
)

// LookupByName finds the value keyed by a report-page test name that
// corresponds to a row's testcase name. Row names carry full package
// paths and sometimes doubled class segments while page names usually
// carry bare class.method, so exact lookup is tried first and then
// progressively looser forms.
func LookupByName[V any](name string, byName map[string]V) (V, bool) {
	var zero V
	if len(byName) == 0 || name == "" {
		return zero, false
	}

	// Exact match on the raw name, then its canonical spelling.
	if v, ok := byName[name]; ok {
		return v, true
	}
	if v, ok := byName[identity.Normalize(name)]; ok {
		return v, true
	}

	class, method := identity.SplitClassMethod(name)
	if method == "" {
		return zero, false
	}

	// class.method from the trailing segments of the collapsed name.
	if v, ok := byName[class+"."+method]; ok {
		return v, true
	}

	// Last resort: method name alone, case-insensitive, against the
	// trailing segment of every page name.
	method = strings.ToLower(method)
	for pageName, v := range byName {
		_, pageMethod := identity.SplitClassMethod(pageName)
		if pageMethod == "" {
			pageMethod = pageName
		}
		if strings.ToLower(pageMethod) == method {
			return v, true
		}
	}
	return zero, false
}
