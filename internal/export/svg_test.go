package export

import (
	"strings"
	"testing"

	"github.com/san-kum/chaoskit/internal/history"
)

func sampleRecords() []history.Record {
	return []history.Record{
		{Time: 0.0, State: []float64{0, 0, 1}, Energy: 5.0},
		{Time: 0.5, State: []float64{1, 2, 1}, Energy: 5.1},
		{Time: 1.0, State: []float64{2, 1, 1}, Energy: 5.0},
	}
}

func TestTrajectorySVG(t *testing.T) {
	svg, err := TrajectorySVG(sampleRecords(), 0, 1, 400, 300, "#ff0000")
	if err != nil {
		t.Fatalf("TrajectorySVG: %v", err)
	}

	if !strings.HasPrefix(svg, `<?xml version="1.0"`) {
		t.Error("missing XML header")
	}
	if !strings.Contains(svg, `stroke="#ff0000"`) {
		t.Error("stroke color not applied")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("want 2 line segments for 3 points, got %d", strings.Count(svg, " L"))
	}
}

func TestTrajectorySVGDefaultColor(t *testing.T) {
	svg, err := TrajectorySVG(sampleRecords(), 0, 1, 400, 300, "")
	if err != nil {
		t.Fatalf("TrajectorySVG: %v", err)
	}
	if !strings.Contains(svg, `stroke="#00ff00"`) {
		t.Error("default stroke color not applied")
	}
}

func TestTrajectorySVGAxisOutOfRange(t *testing.T) {
	if _, err := TrajectorySVG(sampleRecords(), 0, 7, 400, 300, ""); err == nil {
		t.Fatal("expected error for out-of-range axis")
	}
}

func TestTrajectorySVGTooFewRecords(t *testing.T) {
	if _, err := TrajectorySVG(sampleRecords()[:1], 0, 1, 400, 300, ""); err == nil {
		t.Fatal("expected error for single record")
	}
}

func TestEnergySVG(t *testing.T) {
	svg, err := EnergySVG(sampleRecords(), 400, 300, "")
	if err != nil {
		t.Fatalf("EnergySVG: %v", err)
	}
	if !strings.Contains(svg, "<path") {
		t.Error("missing path element")
	}
}
