package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		override   string
		multiplier float64
		limit      int
		want       int
	}{
		{"one per cpu", "", 1.0, 0, cpus},
		{"two per cpu", "", 2.0, 0, cpus * 2},
		{"limit applies", "", 2.0, 1, 1},
		{"never zero", "", 0.0001, 0, 1},
		{"override", "7", 1.0, 0, 7},
		{"override capped", "50", 1.0, 16, 16},
		{"invalid override ignored", "many", 1.0, 0, cpus},
		{"negative override ignored", "-3", 1.0, 0, cpus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.override)
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestForIOAndCPU(t *testing.T) {
	t.Setenv(OverrideEnv, "")
	if io, cpu := ForIO(0), ForCPU(0); io < cpu {
		t.Errorf("ForIO = %d, ForCPU = %d; I/O pools should be at least as large", io, cpu)
	}
	if got := ForIO(3); got > 3 {
		t.Errorf("ForIO(3) = %d", got)
	}
}
