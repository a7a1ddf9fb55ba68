package options

import (
	"strings"
	"testing"
)

func TestAgentOptionsValidate(t *testing.T) {
	o := NewAgentOptions()
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}

	o.Log.Level = "verbose"
	err := o.Validate()
	if err == nil {
		t.Fatal("bad log level passed validation")
	}
	if !strings.Contains(err.Error(), "verbose") {
		t.Fatalf("error %q does not name the bad level", err)
	}
}

func TestAgentOptionsValidateAggregates(t *testing.T) {
	o := NewAgentOptions()
	o.Drone.Addr = ""
	o.Log.Format = "xml"

	err := o.Validate()
	if err == nil {
		t.Fatal("invalid options passed validation")
	}
	for _, want := range []string{"drone address", "xml"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}
