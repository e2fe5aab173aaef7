package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	c := NewConstant(2 * time.Second)
	for _, attempt := range []int{1, 3, 10} {
		if d := c.Delay(attempt); d != 2*time.Second {
			t.Errorf("Delay(%d) = %v, want 2s", attempt, d)
		}
	}
}

func TestExponential(t *testing.T) {
	e := NewExponential(time.Second, 8*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{7, 8 * time.Second}, // capped at Max
	}

	for _, tt := range tests {
		if d := e.Delay(tt.attempt); d != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, d, tt.want)
		}
	}
}

func TestExponentialNoMax(t *testing.T) {
	e := NewExponential(time.Second, 0)
	if d := e.Delay(5); d != 16*time.Second {
		t.Errorf("Delay(5) = %v, want 16s", d)
	}
}
