package hotkeys

import (
	"slices"
	"testing"
)

func TestIgnoreMasks(t *testing.T) {
	const caps, num, scroll = 0x02, 0x10, 0x80

	tests := []struct {
		name             string
		numLock, scrLock uint16
		want             []uint16
	}{
		{"caps only", 0, 0, []uint16{0, caps}},
		{"caps and num", num, 0, []uint16{0, caps, num, caps | num}},
		{"all three", num, scroll, []uint16{0, caps, num, scroll, caps | num, caps | scroll, num | scroll, caps | num | scroll}},
		{"num shares caps mask", caps, 0, []uint16{0, caps}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ignoreMasks(caps, tt.numLock, tt.scrLock)
			slices.Sort(got)
			want := slices.Clone(tt.want)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Fatalf("ignoreMasks = %v, want %v", got, want)
			}
		})
	}
}
