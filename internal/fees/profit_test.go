package fees

import (
	"math"
	"testing"

	"position-sizing-engine/internal/domain"
)

func schedule() domain.FeeSchedule {
	return domain.FeeSchedule{Maker: 0.0002, Taker: 0.0005, Funding: 0.0001}
}

func TestComputeBreakdown_SpotLong(t *testing.T) {
	b := ComputeBreakdown(BreakdownParams{
		Size:                1000,
		EntryPrice:          50000,
		ExpectedMovePercent: 0.005,
		Direction:           domain.DirectionLong,
		Leverage:            1,
		FeeSchedule:         schedule(),
	})

	if b.ExitPrice != 50000*1.005 {
		t.Errorf("Expected exit 50250, got %v", b.ExitPrice)
	}
	// gross = 1000 * 0.005 = 5.00; fees = 1000 * 0.0005 * 2 = 1.00
	if b.GrossProfit != 5.00 {
		t.Errorf("Expected gross 5.00, got %v", b.GrossProfit)
	}
	if b.Fees != 1.00 {
		t.Errorf("Expected fees 1.00, got %v", b.Fees)
	}
	if b.NetProfit != 4.00 {
		t.Errorf("Expected net 4.00, got %v", b.NetProfit)
	}
}

func TestComputeBreakdown_ShortMirrorsExitPrice(t *testing.T) {
	long := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: 0.01,
		Direction: domain.DirectionLong, Leverage: 1, FeeSchedule: schedule(),
	})
	short := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: 0.01,
		Direction: domain.DirectionShort, Leverage: 1, FeeSchedule: schedule(),
	})

	if long.ExitPrice != 101 || short.ExitPrice != 99 {
		t.Errorf("Expected mirrored exits 101/99, got %v/%v", long.ExitPrice, short.ExitPrice)
	}
	// Identical size, move and fees must net identically in both directions
	if long.NetProfit != short.NetProfit {
		t.Errorf("Net profit diverged by direction: long %v short %v", long.NetProfit, short.NetProfit)
	}
	if long.GrossProfit != short.GrossProfit || long.Fees != short.Fees {
		t.Error("Gross or fees diverged by direction")
	}
}

func TestComputeBreakdown_LeverageAddsFunding(t *testing.T) {
	spot := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: 0.005,
		Direction: domain.DirectionLong, Leverage: 1, FeeSchedule: schedule(),
	})
	levered := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: 0.005,
		Direction: domain.DirectionLong, Leverage: 5, FeeSchedule: schedule(),
	})

	// gross scales by leverage: 5.00 -> 25.00
	if levered.GrossProfit != 25.00 {
		t.Errorf("Expected gross 25.00 at 5x, got %v", levered.GrossProfit)
	}
	// fees = 1000*5*0.0005*2 + 1000*5*0.0001 = 5.00 + 0.50
	if levered.Fees != 5.50 {
		t.Errorf("Expected fees 5.50 at 5x, got %v", levered.Fees)
	}
	if spot.Fees != 1.00 {
		t.Errorf("Expected no funding at 1x, got fees %v", spot.Fees)
	}
	if levered.NetProfit != 19.50 {
		t.Errorf("Expected net 19.50 at 5x, got %v", levered.NetProfit)
	}
}

func TestComputeBreakdown_ZeroLeverageTreatedAsSpot(t *testing.T) {
	b := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: 0.005,
		Direction: domain.DirectionLong, Leverage: 0, FeeSchedule: schedule(),
	})
	if b.Fees != 1.00 {
		t.Errorf("Expected spot fees for zero leverage, got %v", b.Fees)
	}
}

func TestComputeBreakdown_NonFiniteInputs(t *testing.T) {
	b := ComputeBreakdown(BreakdownParams{
		Size:                math.NaN(),
		EntryPrice:          math.Inf(1),
		ExpectedMovePercent: math.NaN(),
		Direction:           domain.DirectionLong,
		Leverage:            math.NaN(),
		FeeSchedule:         schedule(),
	})
	if math.IsNaN(b.NetProfit) || math.IsInf(b.NetProfit, 0) {
		t.Errorf("Expected finite net profit, got %v", b.NetProfit)
	}
	if math.IsNaN(b.ExitPrice) || math.IsInf(b.ExitPrice, 0) {
		t.Errorf("Expected finite exit price, got %v", b.ExitPrice)
	}
}

func TestComputeBreakdown_NegativeMoveIsALoss(t *testing.T) {
	b := ComputeBreakdown(BreakdownParams{
		Size: 1000, EntryPrice: 100, ExpectedMovePercent: -0.01,
		Direction: domain.DirectionLong, Leverage: 1, FeeSchedule: schedule(),
	})
	if b.GrossProfit != -10.00 {
		t.Errorf("Expected gross -10.00, got %v", b.GrossProfit)
	}
	if b.NetProfit != -11.00 {
		t.Errorf("Expected net -11.00, got %v", b.NetProfit)
	}
}
