package portfolio

import (
	"math"
	"testing"

	"investment-analyzer/internal/model"
)

func pos(market model.Market, code string, marketValue, plValue float64) model.Position {
	p := model.Position{Market: market, Code: code, MarketValue: marketValue, PLValue: plValue}
	if marketValue-plValue != 0 {
		p.PLRatio = plValue / (marketValue - plValue)
	}
	return p
}

// S4: two positions, HK.00700: 880000, US.NVDA: 120000, no cash.
func TestS4_PortfolioConcentration(t *testing.T) {
	positions := []model.Position{
		pos(model.MarketHK, "00700", 880000, 80000),
		pos(model.MarketUS, "NVDA", 120000, 20000),
	}
	report := Analyze(positions, 5, DefaultThresholds())

	wantWeights := map[string]float64{"00700": 0.88, "NVDA": 0.12}
	for _, m := range report.Positions {
		if math.Abs(m.Weight-wantWeights[m.Position.Code]) > 1e-9 {
			t.Errorf("weight[%s] = %v, want %v", m.Position.Code, m.Weight, wantWeights[m.Position.Code])
		}
	}

	wantHHI := 0.88*0.88*10000 + 0.12*0.12*10000
	if math.Abs(report.Risk.HHI-wantHHI) > 1e-6 {
		t.Errorf("HHI = %v, want %v", report.Risk.HHI, wantHHI)
	}
	if report.Risk.ConcentrationRisk != ConcentrationVeryHigh {
		t.Errorf("concentrationRisk = %v, want VERY_HIGH", report.Risk.ConcentrationRisk)
	}
	found := false
	for _, s := range report.Signals {
		if s == "single position >20%" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected signal 'single position >20%%', got %v", report.Signals)
	}
}

// Invariant 5: weights sum to 1.0 +/- 1e-6 over positions with positive market value.
func TestInvariant_WeightsSumToOne(t *testing.T) {
	positions := []model.Position{
		pos(model.MarketUS, "AAPL", 50000, 5000),
		pos(model.MarketUS, "MSFT", 30000, -2000),
		pos(model.MarketHK, "00700", 20000, 1000),
	}
	report := Analyze(positions, 5, DefaultThresholds())
	var sum float64
	for _, m := range report.Positions {
		sum += m.Weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("weight sum = %v, want 1.0", sum)
	}
}

// Invariant 6: HHI in [0,10000]; one position => 10000; k equal-weight => 10000/k.
func TestInvariant_HHIBounds(t *testing.T) {
	single := []model.Position{pos(model.MarketUS, "AAPL", 1000, 100)}
	r := Analyze(single, 5, DefaultThresholds())
	if math.Abs(r.Risk.HHI-10000) > 1e-6 {
		t.Errorf("single position HHI = %v, want 10000", r.Risk.HHI)
	}

	k := 4
	equal := make([]model.Position, k)
	for i := range equal {
		equal[i] = pos(model.MarketUS, string(rune('A'+i)), 1000, 0)
	}
	r2 := Analyze(equal, 5, DefaultThresholds())
	want := 10000.0 / float64(k)
	if math.Abs(r2.Risk.HHI-want) > 1 {
		t.Errorf("equal-weight HHI = %v, want %v", r2.Risk.HHI, want)
	}
	if r2.Risk.HHI < 0 || r2.Risk.HHI > 10000 {
		t.Errorf("HHI out of bounds: %v", r2.Risk.HHI)
	}
}

func TestTopBottomPerformers(t *testing.T) {
	positions := []model.Position{
		pos(model.MarketUS, "AAA", 1000, 300),
		pos(model.MarketUS, "BBB", 1000, -300),
		pos(model.MarketUS, "CCC", 1000, 100),
	}
	report := Analyze(positions, 1, DefaultThresholds())
	if len(report.TopN) != 1 || report.TopN[0].Position.Code != "AAA" {
		t.Errorf("top performer = %+v, want AAA", report.TopN)
	}
	if len(report.BottomN) != 1 || report.BottomN[0].Position.Code != "BBB" {
		t.Errorf("bottom performer = %+v, want BBB", report.BottomN)
	}
}

func TestLargestLossPosition(t *testing.T) {
	positions := []model.Position{
		pos(model.MarketUS, "AAA", 1000, -500),
		pos(model.MarketUS, "BBB", 1000, -100),
	}
	report := Analyze(positions, 5, DefaultThresholds())
	if report.Risk.LargestLossPosition == nil || report.Risk.LargestLossPosition.Code != "AAA" {
		t.Errorf("largestLossPosition = %+v, want AAA", report.Risk.LargestLossPosition)
	}
}

func TestComputePerformanceRisk_InsufficientData(t *testing.T) {
	if ComputePerformanceRisk([]float64{100}) != nil {
		t.Error("expected nil for fewer than 2 data points")
	}
}

func TestComputePerformanceRisk_ConstantSeries(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 1000
	}
	pr := ComputePerformanceRisk(vals)
	if pr == nil {
		t.Fatal("expected a result")
	}
	if pr.Sharpe != 0 {
		t.Errorf("sharpe on flat series = %v, want 0", pr.Sharpe)
	}
}
