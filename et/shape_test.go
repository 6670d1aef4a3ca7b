package et

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		raw  string
		want Shape
	}{
		{"1", NewShape(1)},
		{"1,3,224,224", NewShape(1, 3, 224, 224)},
		{" 2 , 5 ", NewShape(2, 5)},
	}

	for _, tt := range tests {
		got, err := ParseShape(tt.raw)
		if err != nil {
			t.Errorf("ParseShape(%q) error = %v", tt.raw, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseShape(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestParseShapeInvalid(t *testing.T) {
	for _, raw := range []string{"", ",", "1,,3", "a,b", "1,0", "-1,3", "1,3.5"} {
		if _, err := ParseShape(raw); err == nil {
			t.Errorf("ParseShape(%q) expected error", raw)
		}
	}
}
