package record

import (
	"strings"
	"testing"
)

func TestParseStatus_Synonyms(t *testing.T) {
	cases := []struct {
		token string
		want  Status
		ok    bool
	}{
		{"PASS", StatusPass, true},
		{"passed", StatusPass, true},
		{"SUCCESS", StatusPass, true},
		{"ok", StatusPass, true},
		{" FAILED ", StatusFail, true},
		{"Failure", StatusFail, true},
		{"ERROR", StatusError, true},
		{"errored", StatusError, true},
		{"SKIPPED", StatusSkip, true},
		{"skip", StatusSkip, true},
		{"FLAKED", StatusPass, false},
		{"", StatusPass, false},
	}
	for _, c := range cases {
		got, ok := ParseStatus(c.token)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseStatus(%q) = (%v, %v), want (%v, %v)", c.token, got, ok, c.want, c.ok)
		}
	}
}

func TestRecord_FullNameCollapsesDuplicates(t *testing.T) {
	r := &Record{Class: "Pkg.TestFoo.TestFoo", Method: "testBar"}
	if got := r.FullName(); got != "Pkg.TestFoo.testBar" {
		t.Errorf("FullName = %q, want Pkg.TestFoo.testBar", got)
	}
}

func TestRecord_CombinedLog(t *testing.T) {
	r := &Record{
		ExecutionLog: "step one\nstep two",
		ErrorMessage: "AssertionError: expected 1",
		StackTrace:   "at Foo.bar(Foo.java:10)",
	}
	got := r.CombinedLog()
	for _, want := range []string{"step one", "AssertionError", "Foo.java:10"} {
		if !strings.Contains(got, want) {
			t.Errorf("CombinedLog missing %q:\n%s", want, got)
		}
	}

	// A message already present in the log is not appended twice.
	r2 := &Record{ExecutionLog: "log AssertionError: expected 1", ErrorMessage: "AssertionError: expected 1"}
	if strings.Count(r2.CombinedLog(), "AssertionError") != 1 {
		t.Error("error message duplicated into combined log")
	}
}

func TestCleanFailureReason(t *testing.T) {
	in := "Results Url: http://x/y\nTestcase Name: Foo.bar\nAssertionError: boom\nat Foo.bar(Foo.java:1)"
	got := CleanFailureReason(in)
	if strings.Contains(got, "Results Url") || strings.Contains(got, "Testcase Name") {
		t.Errorf("boilerplate lines not stripped: %q", got)
	}
	if !strings.HasPrefix(got, "AssertionError: boom") {
		t.Errorf("unexpected leading content: %q", got)
	}
}

func TestSplitFailureReason(t *testing.T) {
	short := "AssertionError: expected 'A' but actual is 'B'"
	typ, msg, stack := SplitFailureReason(short)
	if typ != "AssertionError" {
		t.Errorf("errorType = %q, want AssertionError", typ)
	}
	if msg != short {
		t.Errorf("message = %q, want full reason", msg)
	}
	if stack != "" {
		t.Errorf("stackTrace = %q, want empty for short reason", stack)
	}

	long := "NullPointerException: boom\n" + strings.Repeat("at Foo.bar(Foo.java:1)\n", 40)
	typ, msg, stack = SplitFailureReason(long)
	if typ != "NullPointerException" {
		t.Errorf("errorType = %q, want NullPointerException", typ)
	}
	if msg != "NullPointerException: boom" {
		t.Errorf("message = %q", msg)
	}
	if stack == "" {
		t.Error("expected full stack trace for long multi-line reason")
	}
}

func TestDerivePlatform(t *testing.T) {
	cases := []struct {
		class string
		want  Platform
	}{
		{"Automation.Access.api.dash.TestDash", "API"},
		{"Automation.Access.web.customer.TestActivation", "WEB"},
		{"Automation.Access.mobile.TestLogin", "MOBILE"},
		{"Automation.Access.core.TestThing", "UNKNOWN"},
	}
	for _, c := range cases {
		if got := DerivePlatform(c.class); got != c.want {
			t.Errorf("DerivePlatform(%q) = %v, want %v", c.class, got, c.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	records := []*Record{
		{Status: StatusPass, Duration: 1.5},
		{Status: StatusPass, Duration: 0.5},
		{Status: StatusFail},
		{Status: StatusError},
		{Status: StatusSkip},
	}
	s := Summarize(records)
	if s.Total != 5 || s.Passed != 2 || s.Failed != 1 || s.Errors != 1 || s.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.PassRate() != 40 {
		t.Errorf("PassRate = %v, want 40", s.PassRate())
	}
	if s.Duration != 2 {
		t.Errorf("Duration = %v, want 2", s.Duration)
	}
}
