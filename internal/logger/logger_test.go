package logger

import "testing"

func TestCallsBeforeInitAreNoops(t *testing.T) {
	defaultLogger = nil
	Debug("debug %d", 1)
	Info("info %s", "x")
	Warn("warn")
	Error("error %v", nil)
	if Zap() == nil {
		t.Fatal("Zap() must never return nil")
	}
}

func TestInitLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Init(tt.level, "json")
			t.Cleanup(func() { defaultLogger = nil })

			if got := Zap().Core().Enabled(-1); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if got := Zap().Core().Enabled(0); got != tt.info {
				t.Errorf("info enabled = %v, want %v", got, tt.info)
			}
		})
	}
}
