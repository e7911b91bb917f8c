// Package identity canonicalizes test names that upstream sources emit
// inconsistently: duplicated class segments, package-qualified vs short
// spellings, descriptions substituted for method names. The normalized form
// is the join key between every data source in the pipeline.
package identity

import "strings"

// Normalize collapses consecutive duplicate path segments and trims
// whitespace. Exactly one adjacent repeat is collapsed per position,
// scanning left to right: "A.B.C.C.m" -> "A.B.C.m", "X.X" -> "X".
// A triple repeat keeps one duplicated pair ("A.A.A" -> "A.A"), so a
// second pass can collapse further; names without repeats are fixed
// points.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(CollapseDuplicateSegments(name))
}

// CollapseDuplicateSegments removes the repeat of any segment that directly
// follows itself. Non-dotted names pass through unchanged.
func CollapseDuplicateSegments(name string) string {
	if name == "" || !strings.Contains(name, ".") {
		return name
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}

	cleaned := make([]string, 0, len(parts))
	for i := 0; i < len(parts); {
		cleaned = append(cleaned, parts[i])
		if i+1 < len(parts) && parts[i] == parts[i+1] {
			i += 2
		} else {
			i++
		}
	}
	return strings.Join(cleaned, ".")
}

// Match reports whether two spellings refer to the same test.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// SplitQualified splits a qualified name into its full package-qualified
// class path and the trailing method, after collapsing doubled segments:
// "Pkg.Foo.Foo.testBar" -> ("Pkg.Foo", "testBar"). A name without a dot
// is all method: "testBar" -> ("", "testBar").
func SplitQualified(fullName string) (classPath, method string) {
	if fullName == "" {
		return "", ""
	}
	cleaned := CollapseDuplicateSegments(fullName)
	i := strings.LastIndexByte(cleaned, '.')
	if i < 0 {
		return "", cleaned
	}
	return cleaned[:i], cleaned[i+1:]
}

// SplitClassMethod extracts the trailing (class, method) pair from a
// qualified name. A name without a dot has no method:
// "Pkg.TestFoo.testBar" -> ("TestFoo", "testBar"); "testBar" -> ("testBar", "").
func SplitClassMethod(fullName string) (class, method string) {
	if fullName == "" {
		return "", ""
	}
	cleaned := CollapseDuplicateSegments(fullName)
	parts := strings.Split(cleaned, ".")
	if len(parts) < 2 {
		return cleaned, ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// Named is the capability the matcher needs from a record: its qualified
// name plus the class/method split, when known.
type Named interface {
	FullName() string
	ClassName() string
	MethodName() string
}

// FindMatching resolves a name against records using ordered strategies:
// exact normalized-key match first, then a class.method suffix
// reconstruction. Whole-name matches are trusted over the suffix heuristic
// so two classes sharing a trailing method name cannot cross-collide.
// Returns nil when nothing matches.
func FindMatching[T Named](name string, records []T) (T, bool) {
	var zero T
	want := Normalize(name)

	for _, r := range records {
		if Normalize(r.FullName()) == want {
			return r, true
		}
	}
	for _, r := range records {
		if r.ClassName() == "" || r.MethodName() == "" {
			continue
		}
		suffix := CollapseDuplicateSegments(r.ClassName()) + "." + r.MethodName()
		if Match(name, suffix) {
			return r, true
		}
	}
	return zero, false
}
