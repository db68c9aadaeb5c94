package reporter

import (
	"bytes"
	"strings"
	"testing"
)

func newTestReporter(min Level) (*Reporter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Reporter{out: buf, minLevel: min}, buf
}

func TestFlushOrdersBySeverityThenInsertion(t *testing.T) {
	rep, buf := newTestReporter(Info)

	rep.AddWarning("w1")
	rep.AddError("e1")
	rep.AddInfo("i1")
	rep.AddError("e2")
	rep.Flush()

	out := buf.String()
	iIdx := strings.Index(out, "i1")
	wIdx := strings.Index(out, "w1")
	e1Idx := strings.Index(out, "e1")
	e2Idx := strings.Index(out, "e2")

	if !(iIdx < wIdx && wIdx < e1Idx && e1Idx < e2Idx) {
		t.Fatalf("expected Info < Warning < e1 < e2 ordering, got: %q", out)
	}
}

func TestFlushSuppressesBelowMinLevel(t *testing.T) {
	rep, buf := newTestReporter(Warning)

	rep.AddInfo("should not appear")
	rep.AddWarning("should appear")
	rep.Flush()

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("Info report leaked through a Warning-level reporter: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warning report was suppressed: %q", out)
	}
}

func TestFlushClearsReports(t *testing.T) {
	rep, _ := newTestReporter(Info)

	rep.AddInfo("one")
	rep.Flush()
	if rep.Has(Info) {
		t.Error("Has(Info) should be false after Flush clears the buffer")
	}
}

func TestHasRespectsLevel(t *testing.T) {
	rep, _ := newTestReporter(Info)

	rep.AddWarning("w")
	if rep.Has(Error) {
		t.Error("Has(Error) should be false with only a Warning report queued")
	}
	if !rep.Has(Warning) {
		t.Error("Has(Warning) should be true with a Warning report queued")
	}
	if !rep.Has(Info) {
		t.Error("Has(Info) should be true since Warning >= Info")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"Info", Info, false},
		{"Warning", Warning, false},
		{"Error", Error, false},
		{"bogus", Info, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		l    Level
		want string
	}{
		{Info, "INFO"},
		{Warning, "WARN"},
		{Error, "ERROR"},
	}
	for _, tt := range tests {
		if got := tt.l.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.l, got, tt.want)
		}
	}
}
