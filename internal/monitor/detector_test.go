package monitor

import (
	"testing"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

var testThresholds = Thresholds{
	Threshold:    30,
	RetriggerGap: 8,
	Cooldown:     3 * time.Minute,
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	if e, _ := Evaluate(models.AlertState{}, testThresholds, "US30", 29.999, 130, at(0)); e != nil {
		t.Error("29.999 must not trigger")
	}
	if e, _ := Evaluate(models.AlertState{}, testThresholds, "US30", 30.0, 130, at(0)); e == nil {
		t.Error("30.0 must trigger")
	}
	if e, _ := Evaluate(models.AlertState{}, testThresholds, "US30", -30.0, 70, at(0)); e == nil || e.Direction != models.DirectionDown {
		t.Errorf("-30.0 must trigger DOWN, got %+v", e)
	}
}

func TestEvaluate_EventFields(t *testing.T) {
	e, next := Evaluate(models.AlertState{}, testThresholds, "US30", 35, 135, at(30))
	if e == nil {
		t.Fatal("Expected event")
	}
	if e.Direction != models.DirectionUp || e.WindowStartPrice != 100 || e.CurrentPrice != 135 || e.Delta != 35 {
		t.Errorf("Unexpected event: %+v", e)
	}
	if !e.DetectedAt.Equal(at(30)) {
		t.Errorf("Unexpected detection time: %v", e.DetectedAt)
	}
	if next.LastAlertPrice == nil || *next.LastAlertPrice != 135 || !next.LastAlertTime.Equal(at(30)) {
		t.Errorf("State not updated: %+v", next)
	}
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	p := 100.0
	state := models.AlertState{LastAlertPrice: &p, LastAlertTime: at(0)}
	_, next := Evaluate(state, testThresholds, "US30", 40, 150, at(600))
	if *state.LastAlertPrice != 100 || !state.LastAlertTime.Equal(at(0)) {
		t.Error("Input state was modified")
	}
	if *next.LastAlertPrice != 150 {
		t.Errorf("Expected next price 150, got %v", *next.LastAlertPrice)
	}
}

func TestEvaluate_AntiSpamRequiresCooldownAndGap(t *testing.T) {
	p := 135.0
	state := models.AlertState{LastAlertPrice: &p, LastAlertTime: at(30)}

	tests := []struct {
		name  string
		price float64
		now   time.Time
		want  bool
	}{
		{"within cooldown and gap", 136, at(31), false},
		{"within cooldown, beyond gap", 170, at(60), false},
		{"after cooldown, within gap", 140, at(400), false},
		{"after cooldown, beyond gap", 146, at(400), true},
		{"cooldown boundary, gap boundary", 143, at(30 + 180), true},
		{"after cooldown, gap below", 127, at(400), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := Evaluate(state, testThresholds, "US30", 31, tt.price, tt.now)
			if (e != nil) != tt.want {
				t.Errorf("emitted=%v, want %v", e != nil, tt.want)
			}
		})
	}
}

func TestDetector_Idempotent(t *testing.T) {
	d := NewDetector(map[string]Thresholds{"US30": {Threshold: 30}})

	e, err := d.Evaluate("US30", 35, 135, at(30))
	if err != nil || e == nil {
		t.Fatalf("Expected first event, got %v %v", e, err)
	}
	// zero cooldown and zero gap still never repeat for the same instant
	if e, _ := d.Evaluate("US30", 35, 135, at(30)); e != nil {
		t.Error("Re-evaluating unchanged inputs must not emit a duplicate")
	}
}

func TestDetector_PhaseTransitions(t *testing.T) {
	d := NewDetector(map[string]Thresholds{"US30": testThresholds})

	if d.Phase("US30", at(0)) != PhaseIdle {
		t.Error("Expected IDLE before any alert")
	}
	if _, err := d.Evaluate("US30", 35, 135, at(30)); err != nil {
		t.Fatal(err)
	}
	if d.Phase("US30", at(31)) != PhaseCooldown {
		t.Error("Expected COOLDOWN right after an alert")
	}
	if d.Phase("US30", at(30+180)) != PhaseIdle {
		t.Error("Expected IDLE once cooldown elapsed")
	}

	s := d.State("US30")
	*s.LastAlertPrice = 0
	if *d.State("US30").LastAlertPrice != 135 {
		t.Error("State must return a copy")
	}
}

func TestDetector_UnknownInstrument(t *testing.T) {
	d := NewDetector(map[string]Thresholds{})
	if _, err := d.Evaluate("US30", 50, 1, at(0)); err == nil {
		t.Error("Expected error for unknown instrument")
	}
}

// t=0 100, t=30 135 -> UP; t=31 136 suppressed; after cooldown the price leaves the
// window at 112 and rallies to 146 -> second UP.
func TestTrackerDetector_EndToEnd(t *testing.T) {
	tr := NewTracker(map[string]time.Duration{"US30": 60 * time.Second})
	d := NewDetector(map[string]Thresholds{"US30": testThresholds})

	steps := []struct {
		sec   int
		price float64
		emit  bool
	}{
		{0, 100, false},
		{30, 135, true},
		{31, 136, false},
		{345, 112, false},
		{400, 146, true},
	}

	var events []*models.SpikeEvent
	for _, s := range steps {
		delta, err := tr.Observe("US30", s.price, at(s.sec))
		if err != nil {
			t.Fatal(err)
		}
		e, err := d.Evaluate("US30", delta, s.price, at(s.sec))
		if err != nil {
			t.Fatal(err)
		}
		if (e != nil) != s.emit {
			t.Fatalf("t=%d: emitted=%v, want %v (delta %v)", s.sec, e != nil, s.emit, delta)
		}
		if e != nil {
			events = append(events, e)
		}
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Delta != 35 || events[1].Delta != 34 {
		t.Errorf("Unexpected deltas: %v, %v", events[0].Delta, events[1].Delta)
	}
	for _, e := range events {
		if e.Direction != models.DirectionUp {
			t.Errorf("Expected UP, got %s", e.Direction)
		}
	}
}
