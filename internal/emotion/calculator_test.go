package emotion

import "testing"

func TestCalculateExactIntensity(t *testing.T) {
	// importance=0.9, alignment=0.8 -> 0.720
	got := Calculate(0.9, 0.8, "r")
	if got.Intensity != 0.720 {
		t.Fatalf("intensity = %v, want 0.720", got.Intensity)
	}
	if got.Valence != "positive" {
		t.Fatalf("valence = %v, want positive", got.Valence)
	}
}

func TestCalculateValenceBoundaries(t *testing.T) {
	cases := []struct {
		alignment float64
		want      string
	}{
		{0.31, "positive"},
		{0.3, "mixed"},
		{-0.3, "mixed"},
		{-0.31, "negative"},
		{0, "mixed"},
	}
	for _, c := range cases {
		got := Calculate(0.5, c.alignment, "r")
		if got.Valence != c.want {
			t.Errorf("alignment=%v: valence = %v, want %v", c.alignment, got.Valence, c.want)
		}
	}
}

func TestCalculateClamps(t *testing.T) {
	got := Calculate(2.0, -5.0, "r")
	if got.Importance != 1 {
		t.Fatalf("importance = %v, want clamped to 1", got.Importance)
	}
	if got.Alignment != -1 {
		t.Fatalf("alignment = %v, want clamped to -1", got.Alignment)
	}
	if got.Intensity != 1 {
		t.Fatalf("intensity = %v, want 1", got.Intensity)
	}
}

func TestCalculateDefaultReason(t *testing.T) {
	got := Calculate(0.5, 0.5, "")
	if got.Reason == "" {
		t.Fatal("expected a default reason when none supplied")
	}
}

func TestIsAnchorEvent(t *testing.T) {
	if IsAnchorEvent(0.7) {
		t.Fatal("0.7 is not > threshold, must not anchor")
	}
	if !IsAnchorEvent(0.701) {
		t.Fatal("0.701 is > threshold, must anchor")
	}
}
