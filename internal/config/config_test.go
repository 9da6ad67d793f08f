package config

import (
	"reflect"
	"testing"
	"time"
)

func TestDefaultKeepsPipelineConstants(t *testing.T) {
	c := Default()
	if c.OriginalsDir != "Original" || c.CropInputDir != "original" {
		t.Errorf("unexpected roots: %q / %q", c.OriginalsDir, c.CropInputDir)
	}
	if c.ScaleFactor != 1.3 || c.MinNeighbors != 4 {
		t.Errorf("unexpected detector params: %v / %d", c.ScaleFactor, c.MinNeighbors)
	}
	if c.InputSize != 112 || c.PreviewWidth != 200 {
		t.Errorf("unexpected geometry: %d / %d", c.InputSize, c.PreviewWidth)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FACEKIT_ORIGINALS_DIR", "/data/raw")
	t.Setenv("FACEKIT_SCALE_FACTOR", "1.1")
	t.Setenv("FACEKIT_MIN_NEIGHBORS", "not-a-number")
	t.Setenv("FACEKIT_WORKER_TIMEOUT", "5s")
	t.Setenv("DEBUG_MODE", "on")

	c := FromEnv()
	if c.OriginalsDir != "/data/raw" {
		t.Errorf("OriginalsDir = %q", c.OriginalsDir)
	}
	if c.ScaleFactor != 1.1 {
		t.Errorf("ScaleFactor = %v", c.ScaleFactor)
	}
	// Malformed values leave the default in place.
	if c.MinNeighbors != DefaultMinNeighbors {
		t.Errorf("MinNeighbors = %d", c.MinNeighbors)
	}
	if c.WorkerTimeout != 5*time.Second {
		t.Errorf("WorkerTimeout = %v", c.WorkerTimeout)
	}
	if !c.DebugMode {
		t.Error("DebugMode should be enabled")
	}
}

func TestDomains(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"example.com", []string{"example.com"}},
		{" a.com, ,b.com ", []string{"a.com", "b.com"}},
	}
	for _, tt := range tests {
		got := Config{TLSDomains: tt.in}.Domains()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Domains(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
