package particle

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// TestParseVector tests parsing of the supported vector formats
func TestParseVector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		n       int
		want    []float64
		wantErr bool
	}{
		{"Spaces", "1 2 3", 3, []float64{1, 2, 3}, false},
		{"Brackets", "[0.5 -1 2e1]", 3, []float64{0.5, -1, 20}, false},
		{"Commas", "1, 2", 2, []float64{1, 2}, false},
		{"ExtraSpace", "  4   5  ", 2, []float64{4, 5}, false},
		{"TooFew", "1 2", 3, nil, true},
		{"TooMany", "1 2 3 4", 3, nil, true},
		{"NotNumber", "1 x 3", 3, nil, true},
		{"Infinite", "1 inf 3", 3, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVector(tt.input, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVector(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseVector(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseQuat(t *testing.T) {
	q, err := ParseQuat("0 0 0 2")
	if err != nil {
		t.Fatalf("ParseQuat failed: %v", err)
	}
	if !vecNear(q.V, mgl64.Vec3{}, 1e-9) || math.Abs(q.W-1) > 1e-9 {
		t.Errorf("Expected normalized identity, got %v", q)
	}
	if _, err := ParseQuat("0 0 0 0"); err == nil {
		t.Error("Expected error for zero quaternion")
	}
}

// TestParseColor tests byte and hex colour formats
func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    mgl64.Vec4
		wantErr bool
	}{
		{"Bytes", "255 0 0 255", mgl64.Vec4{1, 0, 0, 1}, false},
		{"BytesNoAlpha", "0 255 0", mgl64.Vec4{0, 1, 0, 1}, false},
		{"Hex", "#0000ff", mgl64.Vec4{0, 0, 1, 1}, false},
		{"HexAlpha", "#ffffff00", mgl64.Vec4{1, 1, 1, 0}, false},
		{"OutOfRange", "256 0 0 0", mgl64.Vec4{}, true},
		{"BadHex", "#zzzzzz", mgl64.Vec4{}, true},
		{"WrongCount", "1 2", mgl64.Vec4{}, true},
		{"NaNChannel", "NaN 0 0", mgl64.Vec4{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !vecNear(got, tt.want, 1e-9) {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	for _, name := range []string{"None", "FaceCamera", "AlignVertical", "AlignVelocity"} {
		m, ok := ParseBillboardMode(name)
		if !ok || m.String() != name {
			t.Errorf("ParseBillboardMode(%q) = %v, %v", name, m, ok)
		}
	}
	if _, ok := ParseBillboardMode("faceCamera"); ok {
		t.Error("Billboard tags are case-sensitive")
	}
	if tr, ok := ParseTrigger("Stop"); !ok || tr != TriggerStop {
		t.Errorf("ParseTrigger(Stop) = %v, %v", tr, ok)
	}
	if _, ok := ParseTrigger("Death"); ok {
		t.Error("Unknown trigger should be rejected")
	}
}
