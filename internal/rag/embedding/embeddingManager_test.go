package embedding

import "testing"

func TestCheckVectors(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		inputs  int
		dim     int
		wantErr bool
	}{
		{"ok", [][]float32{{1, 2}, {3, 4}}, 2, 2, false},
		{"count mismatch", [][]float32{{1, 2}}, 2, 2, true},
		{"dimension mismatch", [][]float32{{1, 2}, {3}}, 2, 2, true},
		{"empty", nil, 0, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVectors(tt.vectors, tt.inputs, tt.dim)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckVectors() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
