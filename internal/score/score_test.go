package score

import (
	"testing"

	"investment-analyzer/internal/model"
)

func scoreBar(i int, close float64, volume int64) model.Bar {
	d := 1 + i
	ds := "2024-04-"
	if d < 10 {
		ds += "0"
	}
	digits := [2]byte{byte('0' + d/10), byte('0' + d%10)}
	ds += string(digits[:])
	return model.Bar{Market: model.MarketUS, Code: "TEST", Date: ds, Open: close, High: close * 1.01, Low: close * 0.99, Close: close, Volume: volume}
}

func TestScore_Uptrend(t *testing.T) {
	bars := make([]model.Bar, 70)
	price := 100.0
	for i := range bars {
		price += 0.5
		bars[i] = scoreBar(i, price, 1000+int64(i)*10)
	}
	res, err := Score(bars, DefaultWeights())
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if res.Composite < 50 {
		t.Errorf("steady uptrend composite = %v, want >= 50", res.Composite)
	}
	if res.Rating == RatingStrongSell || res.Rating == RatingSell {
		t.Errorf("steady uptrend rating = %v, want buy-leaning", res.Rating)
	}
}

func TestScore_RatingBands(t *testing.T) {
	cases := []struct {
		composite float64
		want      Rating
	}{
		{80, RatingStrongBuy},
		{65, RatingBuy},
		{50, RatingHold},
		{30, RatingSell},
		{10, RatingStrongSell},
	}
	for _, c := range cases {
		if got := ratingFor(c.composite); got != c.want {
			t.Errorf("ratingFor(%v) = %v, want %v", c.composite, got, c.want)
		}
	}
}

func TestScore_ShortSeriesNeutral(t *testing.T) {
	bars := make([]model.Bar, 5)
	for i := range bars {
		bars[i] = scoreBar(i, 100, 1000)
	}
	res, err := Score(bars, DefaultWeights())
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if res.Composite != 50 {
		t.Errorf("composite on too-short series = %v, want neutral 50", res.Composite)
	}
}

// volatilityScore folds in ATR/ADX alongside Bollinger; a long enough
// series should exercise both without erroring and stay in [0,100].
func TestVolatilityScore_WithATRADX_StaysInBounds(t *testing.T) {
	bars := make([]model.Bar, 60)
	price := 100.0
	for i := range bars {
		price += 0.8
		bars[i] = scoreBar(i, price, 1000)
	}
	v, err := volatilityScore(bars)
	if err != nil {
		t.Fatalf("volatilityScore: %v", err)
	}
	if v < 0 || v > 100 {
		t.Errorf("volatilityScore = %v, want within [0,100]", v)
	}
}

func TestClamp(t *testing.T) {
	if clamp(-10) != 0 {
		t.Error("clamp should floor at 0")
	}
	if clamp(200) != 100 {
		t.Error("clamp should ceiling at 100")
	}
}
