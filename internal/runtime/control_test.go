package runtime

import (
	"testing"

	"quill/internal/object"
)

func TestCompletionLoop(t *testing.T) {
	ret := Return(object.NewCell(object.NULL))
	tests := []struct {
		name     string
		in       Completion
		wantOut  Completion
		wantStop bool
	}{
		{"normal", Normal, Normal, false},
		{"break", Break(1), Normal, true},
		{"break 3", Break(3), Break(2), true},
		{"continue", Continue(1), Normal, false},
		{"continue 2", Continue(2), Continue(1), true},
		{"return", ret, ret, true},
	}
	for _, tt := range tests {
		out, stop := tt.in.Loop()
		if out != tt.wantOut || stop != tt.wantStop {
			t.Errorf("%s: Loop() = %+v, %v, want %+v, %v", tt.name, out, stop, tt.wantOut, tt.wantStop)
		}
	}
}

func TestCompletionSwitch(t *testing.T) {
	tests := []struct {
		name string
		in   Completion
		want Completion
	}{
		{"normal", Normal, Normal},
		{"break", Break(1), Normal},
		{"break 2", Break(2), Break(1)},
		// a continue aimed at the switch resumes the enclosing loop
		{"continue", Continue(1), Continue(1)},
		{"continue 2", Continue(2), Continue(1)},
		{"continue 3", Continue(3), Continue(2)},
	}
	for _, tt := range tests {
		if got := tt.in.Switch(); got != tt.want {
			t.Errorf("%s: Switch() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestBreakDepthFloor(t *testing.T) {
	if got := Break(0); got.Depth != 1 {
		t.Errorf("Break(0).Depth = %d, want 1", got.Depth)
	}
	if got := Continue(-2); got.Depth != 1 {
		t.Errorf("Continue(-2).Depth = %d, want 1", got.Depth)
	}
}
