package driver

import (
	"strings"
	"testing"
)

func TestAuxSourceEmbeds(t *testing.T) {
	src, err := auxSource()
	if err != nil {
		t.Fatalf("auxSource: %v", err)
	}

	for _, want := range []string{"dump_i", "dump_f", "i64tof64"} {
		if !strings.Contains(string(src), want) {
			t.Errorf("expected the embedded auxiliary source to define %s", want)
		}
	}
}
