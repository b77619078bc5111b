package welcome_test

import (
	"testing"

	"github.com/dalemusser/studentportal/internal/app/features/welcome"
	"github.com/dalemusser/studentportal/internal/domain/models"
)

func TestBuildChart_KeepsSeriesOrderAndScales(t *testing.T) {
	series := []models.AttendanceEntry{
		{StudentName: "Zed", AttendancePercentage: 50},
		{StudentName: "Amy", AttendancePercentage: 100},
		{StudentName: "Kai", AttendancePercentage: 0},
	}

	bars, empty, baseY := welcome.BuildChart(series)
	if empty {
		t.Fatal("chart should not be empty")
	}
	if len(bars) != 3 {
		t.Fatalf("bars: got %d, want 3", len(bars))
	}
	for i, name := range []string{"Zed", "Amy", "Kai"} {
		if bars[i].Label != name {
			t.Errorf("bar %d label: got %q, want %q", i, bars[i].Label, name)
		}
	}
	if bars[1].Height <= bars[0].Height {
		t.Error("100% bar should be taller than 50% bar")
	}
	if bars[1].Height != 2*bars[0].Height {
		t.Errorf("heights not proportional: %v vs %v", bars[1].Height, bars[0].Height)
	}
	if bars[2].Height != 0 || bars[2].Y != baseY {
		t.Errorf("zero bar should sit on the baseline, got h=%v y=%v", bars[2].Height, bars[2].Y)
	}
	if !(bars[0].X < bars[1].X && bars[1].X < bars[2].X) {
		t.Error("bars should be laid out left to right")
	}
}

func TestBuildChart_Empty(t *testing.T) {
	bars, empty, _ := welcome.BuildChart(nil)
	if !empty || len(bars) != 0 {
		t.Errorf("empty series: got empty=%v bars=%d", empty, len(bars))
	}
}

func TestState_String(t *testing.T) {
	if welcome.NoClassSelected.String() != "no-class-selected" || welcome.Loading.String() != "loading" || welcome.Populated.String() != "populated" {
		t.Error("unexpected state names")
	}
}
