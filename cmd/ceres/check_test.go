package main

import (
	"context"
	"testing"
)

func TestParseCounts(t *testing.T) {
	counts, err := parseCounts([]string{"cores=2", "ram_mb=2048", "instances=0"})
	if err != nil {
		t.Fatalf("parseCounts failed: %v", err)
	}
	if counts["cores"] != 2 || counts["ram_mb"] != 2048 || counts["instances"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestParseCountsEmpty(t *testing.T) {
	counts, err := parseCounts(nil)
	if err != nil {
		t.Fatalf("parseCounts failed: %v", err)
	}
	if counts != nil {
		t.Fatalf("expected nil map for no pairs, got %v", counts)
	}
}

func TestParseCountsErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
	}{
		{"missing separator", []string{"cores"}},
		{"empty name", []string{"=2"}},
		{"non-numeric count", []string{"cores=two"}},
		{"empty count", []string{"cores="}},
		{"duplicate resource", []string{"cores=1", "cores=2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCounts(tt.pairs); err == nil {
				t.Fatalf("expected error for %v", tt.pairs)
			}
		})
	}
}

func TestStaticUsageDefaultsToZero(t *testing.T) {
	usage := staticUsage(map[string]int64{"cores": 5})

	got, err := usage(context.Background(), "p1", []string{"cores", "ram_mb"})
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if got["cores"] != 5 {
		t.Fatalf("expected supplied usage, got %v", got)
	}
	if count, ok := got["ram_mb"]; !ok || count != 0 {
		t.Fatalf("expected zero usage for unsupplied resource, got %v", got)
	}
}
