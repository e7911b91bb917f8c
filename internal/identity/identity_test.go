package identity

import "testing"

func TestNormalize_CollapsesAdjacentDuplicates(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"A.B.C.C", "A.B.C"},
		{"A.B.C.C.method", "A.B.C.method"},
		{"X.X", "X"},
		{"Pkg.Foo.Foo.testBar", "Pkg.Foo.testBar"},
		{"Automation.Access.api.TestDash.TestDash.testMethod", "Automation.Access.api.TestDash.testMethod"},
		{"NoDots", "NoDots"},
		{"  A.B  ", "A.B"},
		{"", ""},
		// Only one adjacent repeat collapses per position.
		{"A.A.A", "A.A"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_SinglePassCollapse(t *testing.T) {
	// One adjacent repeat collapses per position, so a triple keeps a
	// doubled pair and a second pass collapses it further.
	if got := Normalize("A.A.A"); got != "A.A" {
		t.Fatalf("Normalize(\"A.A.A\") = %q, want \"A.A\"", got)
	}
	if got := Normalize(Normalize("A.A.A")); got != "A" {
		t.Fatalf("second pass = %q, want \"A\"", got)
	}

	// Names with at most one repeat per position are fixed points.
	for _, n := range []string{"A.B.C.C", "Pkg.Foo.Foo.testBar", "plain", "", "X.Y.Z"} {
		once := Normalize(n)
		if twice := Normalize(once); once != twice {
			t.Errorf("Normalize(%q) not stable: %q != %q", n, once, twice)
		}
	}
}

func TestMatch(t *testing.T) {
	if !Match("A.B.B.m", "A.B.m") {
		t.Error("expected duplicate-collapsed names to match")
	}
	if Match("A.B.m", "A.C.m") {
		t.Error("different classes must not match")
	}
}

func TestSplitQualified(t *testing.T) {
	cases := []struct {
		in, class, method string
	}{
		{"Pkg.Foo.Foo.testBar", "Pkg.Foo", "testBar"},
		{"Automation.Access.api.TestDash.testMethod", "Automation.Access.api.TestDash", "testMethod"},
		{"TestFoo.testBar", "TestFoo", "testBar"},
		{"testBar", "", "testBar"},
		{"", "", ""},
	}
	for _, c := range cases {
		class, method := SplitQualified(c.in)
		if class != c.class || method != c.method {
			t.Errorf("SplitQualified(%q) = (%q, %q), want (%q, %q)", c.in, class, method, c.class, c.method)
		}
	}
}

func TestSplitClassMethod(t *testing.T) {
	cases := []struct {
		in, class, method string
	}{
		{"Pkg.TestFoo.testBar", "TestFoo", "testBar"},
		{"TestFoo.TestFoo.testBar", "TestFoo", "testBar"},
		{"testBar", "testBar", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		class, method := SplitClassMethod(c.in)
		if class != c.class || method != c.method {
			t.Errorf("SplitClassMethod(%q) = (%q, %q), want (%q, %q)", c.in, class, method, c.class, c.method)
		}
	}
}

type namedStub struct {
	full, class, method string
}

func (s namedStub) FullName() string   { return s.full }
func (s namedStub) ClassName() string  { return s.class }
func (s namedStub) MethodName() string { return s.method }

func TestFindMatching_ExactBeforeSuffix(t *testing.T) {
	records := []namedStub{
		{full: "Other.TestFoo.testBar", class: "TestFoo", method: "testBar"},
		{full: "Pkg.TestFoo.testBar", class: "TestFoo", method: "testBar"},
	}

	got, ok := FindMatching("Pkg.TestFoo.TestFoo.testBar", records)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.full != "Pkg.TestFoo.testBar" {
		t.Errorf("exact normalized match should win, got %q", got.full)
	}
}

func TestFindMatching_SuffixFallback(t *testing.T) {
	records := []namedStub{
		{full: "some human readable description", class: "TestFoo", method: "testBar"},
	}
	got, ok := FindMatching("TestFoo.testBar", records)
	if !ok {
		t.Fatal("expected suffix match")
	}
	if got.class != "TestFoo" {
		t.Errorf("got class %q, want TestFoo", got.class)
	}
}

func TestFindMatching_NoMatch(t *testing.T) {
	records := []namedStub{
		{full: "Pkg.TestFoo.testBar", class: "TestFoo", method: "testBar"},
	}
	if _, ok := FindMatching("Pkg.TestQux.testOther", records); ok {
		t.Error("expected no match")
	}
}
