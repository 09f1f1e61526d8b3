package engine

import "testing"

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1, MinZoom},
		{0.25, 0.25},
		{1.0, 1.0},
		{3.0, 3.0},
		{10.0, MaxZoom},
	}
	for _, tt := range tests {
		if got := ClampZoom(tt.in); got != tt.want {
			t.Errorf("ClampZoom(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToDocument(t *testing.T) {
	v := Viewport{Zoom: 2.0, OriginX: 100, OriginY: 100}

	x, y := v.ToDocument(140, 140)
	if x != 20 || y != 20 {
		t.Fatalf("ToDocument(140,140) = (%v,%v), want (20,20)", x, y)
	}
}

func TestToScreenInvertsToDocument(t *testing.T) {
	v := Viewport{Zoom: 1.5, OriginX: -30, OriginY: 12}

	dx, dy := v.ToDocument(250, 99)
	sx, sy := v.ToScreen(dx, dy)
	if sx != 250 || sy != 99 {
		t.Fatalf("round trip = (%v,%v), want (250,99)", sx, sy)
	}
}
