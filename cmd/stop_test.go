package cmd

import "testing"

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{90, "1m 30s"},
		{3600, "1h 0m 0s"},
		{3725, "1h 2m 5s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.seconds); got != tt.want {
			t.Errorf("formatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
