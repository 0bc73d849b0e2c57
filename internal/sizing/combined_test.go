package sizing

import (
	"math"
	"strings"
	"testing"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/streak"
)

func testConfig() domain.Configuration {
	return domain.DefaultConfiguration("u1")
}

func TestCombine_NeutralBaseline(t *testing.T) {
	cfg := testConfig()
	rec := Combine(100, domain.NewStreakState(), domain.RegimeSignal{Label: domain.RegimeChop}, cfg)

	if rec.FinalSize != 100.00 {
		t.Errorf("Expected 100.00, got %v", rec.FinalSize)
	}
	if rec.CombinedMultiplier != 1.0 {
		t.Errorf("Expected combined 1.0, got %v", rec.CombinedMultiplier)
	}
	if rec.IsAtMinimum || rec.IsAtMaximum {
		t.Error("Neutral sizing should not touch a bound")
	}
	if rec.Reason != "baseline sizing" {
		t.Errorf("Expected baseline reason, got %q", rec.Reason)
	}
	if rec.RecentPerformance != domain.PerformanceNeutral {
		t.Errorf("Expected neutral performance, got %q", rec.RecentPerformance)
	}
}

func TestCombine_ThreeWinsNeutralRegime(t *testing.T) {
	cfg := testConfig()
	s := domain.NewStreakState()
	for i := 0; i < 3; i++ {
		s = streak.ApplyOutcome(s, true, cfg)
	}

	// confidence 0, so the regime contributes nothing
	rec := Combine(100, s, domain.RegimeSignal{Label: domain.RegimeBull, Deviation: 0}, cfg)
	if rec.FinalSize != 110.00 {
		t.Errorf("Expected 110.00 after 3 wins, got %v", rec.FinalSize)
	}
	if math.Abs(rec.StreakMultiplier-1.1) > 1e-12 {
		t.Errorf("Expected streak multiplier 1.1, got %v", rec.StreakMultiplier)
	}
	if rec.RegimeMultiplier != 1.0 {
		t.Errorf("Expected regime multiplier 1.0, got %v", rec.RegimeMultiplier)
	}
}

func TestCombine_SaturatedBullRegime(t *testing.T) {
	cfg := testConfig()
	rec := Combine(100, domain.NewStreakState(), domain.RegimeSignal{Label: domain.RegimeBull, Deviation: 0.01}, cfg)

	if rec.RegimeMultiplier != 1.2 {
		t.Errorf("Expected regime multiplier 1.2 at saturation, got %v", rec.RegimeMultiplier)
	}
	if rec.FinalSize != 120.00 {
		t.Errorf("Expected 120.00, got %v", rec.FinalSize)
	}
	if !strings.Contains(rec.Reason, "BULL") {
		t.Errorf("Expected regime reason, got %q", rec.Reason)
	}
}

func TestCombine_ClampAndFlags(t *testing.T) {
	cfg := testConfig()
	s := domain.NewStreakState()
	s.StreakMultiplier = 1.5

	// 1.5 * 1.2 = 1.8, clamped to 1.5
	rec := Combine(100, s, domain.RegimeSignal{Label: domain.RegimeBull, Deviation: 0.01}, cfg)
	if rec.CombinedMultiplier != cfg.MaxMultiplier {
		t.Errorf("Expected clamp at %v, got %v", cfg.MaxMultiplier, rec.CombinedMultiplier)
	}
	if !rec.IsAtMaximum {
		t.Error("Expected IsAtMaximum")
	}
	if rec.FinalSize != 150.00 {
		t.Errorf("Expected 150.00, got %v", rec.FinalSize)
	}

	s.StreakMultiplier = 0.5
	rec = Combine(100, s, domain.RegimeSignal{Label: domain.RegimeBear, Deviation: 0.01}, cfg)
	if !rec.IsAtMinimum {
		t.Error("Expected IsAtMinimum")
	}
	if rec.FinalSize != 50.00 {
		t.Errorf("Expected 50.00, got %v", rec.FinalSize)
	}
}

func TestCombine_ClampHoldsForAllInputs(t *testing.T) {
	cfg := testConfig()
	deviations := []float64{-0.05, -0.01, -0.003, 0, 0.003, 0.01, 0.05, math.NaN()}
	labels := []string{domain.RegimeBull, domain.RegimeBear, domain.RegimeChop, "UNKNOWN"}
	multipliers := []float64{0.3, 0.5, 0.9, 1.0, 1.3, 1.5, 2.0, math.NaN()}

	for _, m := range multipliers {
		for _, l := range labels {
			for _, d := range deviations {
				s := domain.NewStreakState()
				s.StreakMultiplier = m
				rec := Combine(100, s, domain.RegimeSignal{Label: l, Deviation: d}, cfg)
				if rec.CombinedMultiplier < cfg.MinMultiplier || rec.CombinedMultiplier > cfg.MaxMultiplier {
					t.Fatalf("Combined multiplier %v out of bounds for mult=%v label=%s dev=%v", rec.CombinedMultiplier, m, l, d)
				}
				if math.IsNaN(rec.FinalSize) || math.IsInf(rec.FinalSize, 0) {
					t.Fatalf("Non-finite final size for mult=%v label=%s dev=%v", m, l, d)
				}
			}
		}
	}
}

func TestCombine_Round2(t *testing.T) {
	cfg := testConfig()
	s := domain.NewStreakState()
	s.StreakMultiplier = 1.1

	rec := Combine(33.33, s, domain.RegimeSignal{Label: domain.RegimeChop}, cfg)
	// 33.33 * 1.1 = 36.663, rounded to cents
	if rec.FinalSize != 36.66 {
		t.Errorf("Expected 36.66, got %v", rec.FinalSize)
	}
}
