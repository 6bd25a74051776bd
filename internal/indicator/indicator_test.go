package indicator

import (
	"math"
	"testing"

	"investment-analyzer/internal/model"
)

func barsFromCloses(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Market: model.MarketUS,
			Code:   "TEST",
			Date:   dateFor(i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func dateFor(i int) string {
	// Small deterministic ascending date generator, base 2024-01-01.
	day := 1 + i
	return "2024-01-" + pad2(day)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// S1: SMA/EMA sanity.
func TestS1_SMA_EMA_Sanity(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5})

	sma, err := SMA(bars, 3)
	if err != nil {
		t.Fatalf("SMA error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, ok := sma.At(i); ok {
			t.Errorf("SMA[%d] should be absent", i)
		}
	}
	wantSMA := []float64{2, 3, 4}
	for i, want := range wantSMA {
		got, ok := sma.At(i + 2)
		if !ok || !approxEqual(got, want) {
			t.Errorf("SMA[%d] = %v (ok=%v), want %v", i+2, got, ok, want)
		}
	}

	ema, err := EMA(bars, 3)
	if err != nil {
		t.Fatalf("EMA error: %v", err)
	}
	last, ok := ema.At(3)
	if !ok || !approxEqual(last, 3.0) {
		t.Errorf("EMA[3] = %v, want 3.0", last)
	}
	last2, ok := ema.At(4)
	if !ok || !approxEqual(last2, 4.0) {
		t.Errorf("EMA[4] = %v, want 4.0", last2)
	}
}

// SMA(1) = close.
func TestSMA1EqualsClose(t *testing.T) {
	bars := barsFromCloses([]float64{10, 20, 30})
	sma, err := SMA(bars, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range bars {
		v, ok := sma.At(i)
		if !ok || !approxEqual(v, b.Close) {
			t.Errorf("SMA(1)[%d] = %v, want %v", i, v, b.Close)
		}
	}
}

// EMA converges to close on a constant series.
func TestEMAConvergesOnConstantSeries(t *testing.T) {
	closesConst := make([]float64, 30)
	for i := range closesConst {
		closesConst[i] = 42
	}
	bars := barsFromCloses(closesConst)
	ema, err := EMA(bars, 5)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := ema.At(len(bars) - 1)
	if !ok || !approxEqual(v, 42) {
		t.Errorf("EMA on constant series = %v, want 42", v)
	}
}

// S2: OBV directional.
func TestS2_OBV_Directional(t *testing.T) {
	closesSeq := []float64{10, 11, 11, 10, 12}
	volumes := []int64{100, 200, 150, 300, 400}
	bars := make([]model.Bar, len(closesSeq))
	for i, c := range closesSeq {
		bars[i] = model.Bar{
			Market: model.MarketUS, Code: "TEST", Date: dateFor(i),
			Open: c, High: c, Low: c, Close: c, Volume: volumes[i],
		}
	}
	obv, err := OBV(bars)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 200, 200, -100, 300}
	for i, w := range want {
		v, ok := obv.At(i)
		if !ok || !approxEqual(v, w) {
			t.Errorf("OBV[%d] = %v, want %v", i, v, w)
		}
	}
}

// Invariant 2: OBV[i]-OBV[i-1] in {+volume,0,-volume}.
func TestOBVInvariant(t *testing.T) {
	closesSeq := []float64{5, 6, 6, 4, 4, 9, 1}
	volumes := []int64{10, 20, 30, 40, 50, 60, 70}
	bars := make([]model.Bar, len(closesSeq))
	for i, c := range closesSeq {
		bars[i] = model.Bar{Market: model.MarketUS, Code: "X", Date: dateFor(i), Open: c, High: c, Low: c, Close: c, Volume: volumes[i]}
	}
	obv, _ := OBV(bars)
	for i := 1; i < len(bars); i++ {
		prev, _ := obv.At(i - 1)
		cur, _ := obv.At(i)
		diff := cur - prev
		vol := float64(volumes[i])
		if !(approxEqual(diff, vol) || approxEqual(diff, 0) || approxEqual(diff, -vol)) {
			t.Errorf("OBV diff at %d = %v, want +-%v or 0", i, diff, vol)
		}
	}
}

// Constant input yields RSI=50 after warmup.
func TestRSIConstantSeriesIs50(t *testing.T) {
	closesConst := make([]float64, 30)
	for i := range closesConst {
		closesConst[i] = 100
	}
	bars := barsFromCloses(closesConst)
	rsi, err := RSI(bars, 14)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := rsi.At(len(bars) - 1)
	if !ok || !approxEqual(v, 50) {
		t.Errorf("RSI on constant series = %v, want 50", v)
	}
}

// Invariant 1: S[i] defined iff i >= warmup.
func TestWarmupInvariant(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	sma, _ := SMA(bars, 4)
	for i := range bars {
		_, ok := sma.At(i)
		wantOK := i >= 3
		if ok != wantOK {
			t.Errorf("SMA defined[%d] = %v, want %v", i, ok, wantOK)
		}
	}
}

// Constant input yields MACD hist = 0 after warmup.
func TestMACDConstantSeriesHistZero(t *testing.T) {
	closesConst := make([]float64, 60)
	for i := range closesConst {
		closesConst[i] = 50
	}
	bars := barsFromCloses(closesConst)
	res, err := MACD(bars, DefaultMACDConfig())
	if err != nil {
		t.Fatal(err)
	}
	v, ok := res.Hist.At(len(bars) - 1)
	if !ok || !approxEqual(v, 0) {
		t.Errorf("MACD hist on constant series = %v, want 0", v)
	}
}

// Invariant 3: hist = macd - signal wherever both defined.
func TestMACDHistConsistency(t *testing.T) {
	vals := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21, 20, 22, 24, 23,
		25, 27, 26, 28, 30, 29, 31, 33, 32, 34, 36, 35, 37, 39, 38, 40, 42, 41,
		43, 45, 44, 46, 48, 47, 49, 51, 50, 52, 54, 53, 55, 57, 56, 58, 60}
	bars := barsFromCloses(vals)
	res, err := MACD(bars, DefaultMACDConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := range bars {
		m, mok := res.Macd.At(i)
		s, sok := res.Signal.At(i)
		h, hok := res.Hist.At(i)
		if mok && sok {
			if !hok {
				t.Fatalf("hist should be defined at %d", i)
			}
			if !approxEqual(h, m-s) {
				t.Errorf("hist[%d] = %v, want %v", i, h, m-s)
			}
		}
	}
}

func TestUnsortedSeriesRejected(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3})
	bars[1], bars[2] = bars[2], bars[1]
	_, err := SMA(bars, 2)
	if err == nil {
		t.Fatal("expected error for unsorted series")
	}
}

func TestBollingerSqueeze(t *testing.T) {
	closesConst := make([]float64, 25)
	for i := range closesConst {
		closesConst[i] = 100
	}
	bars := barsFromCloses(closesConst)
	res, err := Bollinger(bars, DefaultBollingerConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Squeeze[len(bars)-1] {
		t.Error("expected squeeze on a flat series")
	}
}

func barsWithRange(closes []float64, rangePct float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Market: model.MarketUS, Code: "TEST", Date: dateFor(i),
			Open: c, High: c * (1 + rangePct), Low: c * (1 - rangePct), Close: c, Volume: 100,
		}
	}
	return bars
}

func TestATR_TracksBarRange(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := barsWithRange(closes, 0.02) // +/-2% every bar -> true range ~= 4
	atr, err := ATR(bars, 14)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := atr.At(len(bars) - 1)
	if !ok {
		t.Fatal("expected a defined ATR value at the end of the series")
	}
	if v < 3 || v > 5 {
		t.Errorf("ATR = %v, want close to 4 (2%% of a 100 close, doubled)", v)
	}
}

// A steady directional ramp produces a strong, well-defined trend, so ADX
// should read high; a flat series with no directional movement at all
// should read near zero.
func TestADX_HighOnTrendLowOnFlat(t *testing.T) {
	trendCloses := make([]float64, 60)
	price := 100.0
	for i := range trendCloses {
		price += 1.0
		trendCloses[i] = price
	}
	trendBars := barsWithRange(trendCloses, 0.005)
	trendADX, err := ADX(trendBars, 14)
	if err != nil {
		t.Fatal(err)
	}
	trendVal, ok := trendADX.At(len(trendBars) - 1)
	if !ok {
		t.Fatal("expected a defined ADX value for the trending series")
	}
	if trendVal < 25 {
		t.Errorf("trending ADX = %v, want >= 25", trendVal)
	}

	flatCloses := make([]float64, 60)
	for i := range flatCloses {
		flatCloses[i] = 100
	}
	flatBars := barsWithRange(flatCloses, 0.005)
	flatADX, err := ADX(flatBars, 14)
	if err != nil {
		t.Fatal(err)
	}
	flatVal, ok := flatADX.At(len(flatBars) - 1)
	if !ok {
		t.Fatal("expected a defined ADX value for the flat series")
	}
	if flatVal > trendVal {
		t.Errorf("flat ADX = %v, want <= trending ADX %v", flatVal, trendVal)
	}
}
