package tile

import "testing"

func TestPackedKeyUniqueWithinZoom(t *testing.T) {
	for zoom := 0; zoom <= 6; zoom++ {
		seen := make(map[int64]Key)
		n := 1 << zoom
		for col := 0; col < n; col++ {
			for row := 0; row < n; row++ {
				k := Key{Zoom: zoom, Column: col, Row: row}
				if prev, ok := seen[k.Packed()]; ok {
					t.Fatalf("packed key %d shared by %v and %v", k.Packed(), prev, k)
				}
				seen[k.Packed()] = k
			}
		}
	}
}

func TestPackedKeyCollidesAcrossZoom(t *testing.T) {
	a := Key{Zoom: 1, Column: 1, Row: 0}
	b := Key{Zoom: 2, Column: 0, Row: 2}
	if a.Packed() != b.Packed() {
		t.Fatalf("expected %v and %v to share packed key, got %d and %d", a, b, a.Packed(), b.Packed())
	}
	if a == b {
		t.Fatal("keys at different zoom levels must differ")
	}
}

func TestNewKeyWrapsColumnsAndClampsRows(t *testing.T) {
	tests := []struct {
		zoom, col, row int
		want           Key
	}{
		{3, -1, 2, Key{3, 7, 2}},
		{3, 8, 2, Key{3, 0, 2}},
		{3, 17, -4, Key{3, 1, 0}},
		{3, 2, 9, Key{3, 2, 7}},
		{0, 5, 5, Key{0, 0, 0}},
	}

	for _, tt := range tests {
		got := NewKey(tt.zoom, tt.col, tt.row)
		if got != tt.want {
			t.Errorf("NewKey(%d, %d, %d) = %v, want %v", tt.zoom, tt.col, tt.row, got, tt.want)
		}
		if !got.Valid() {
			t.Errorf("NewKey(%d, %d, %d) produced invalid key %v", tt.zoom, tt.col, tt.row, got)
		}
	}
}

func TestAncestor(t *testing.T) {
	k := Key{Zoom: 5, Column: 2, Row: 2}

	if got := k.Ancestor(1); got != (Key{Zoom: 4, Column: 1, Row: 1}) {
		t.Errorf("Ancestor(1) = %v", got)
	}
	if got := k.Ancestor(5); got != (Key{Zoom: 0, Column: 0, Row: 0}) {
		t.Errorf("Ancestor(5) = %v", got)
	}
	if got := k.Ancestor(9); got != (Key{Zoom: 0, Column: 0, Row: 0}) {
		t.Errorf("Ancestor(9) = %v", got)
	}
}

func TestKeyString(t *testing.T) {
	if got := (Key{Zoom: 14, Column: 8392, Row: 5467}).String(); got != "14/8392/5467" {
		t.Errorf("String() = %q", got)
	}
}

func TestPackedKeyUniqueAtZoomLimit(t *testing.T) {
	z := ZoomLimit - 1
	last := 1<<z - 1
	keys := []Key{
		NewKey(z, last, last),
		NewKey(z, last, last-1),
		NewKey(z, last-1, last),
	}

	seen := make(map[int64]Key)
	for _, k := range keys {
		if k.Packed() < 0 {
			t.Fatalf("Packed(%v) overflowed: %d", k, k.Packed())
		}
		if prev, ok := seen[k.Packed()]; ok {
			t.Fatalf("Packed(%v) collides with %v", k, prev)
		}
		seen[k.Packed()] = k
	}
}
