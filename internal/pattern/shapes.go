package pattern

import "investment-analyzer/internal/model"

// ShapeResult is the common descriptor returned by each geometric pattern
// detector: {detected, score, keyPoints, projectedTarget?}.
type ShapeResult struct {
	Detected        bool
	Score           float64
	KeyPoints       []int // bar indices of the pattern's defining points
	ProjectedTarget *float64
}

// ShapeConfig tunes the geometric shape predicates, which all operate over
// the same local-extrema swing window.
type ShapeConfig struct {
	SwingWindow int
	// Tolerance bounds how close two "equal" shoulders/tops/bottoms must be
	// to each other, as a fraction of price.
	SymmetryTolerancePct float64
}

func DefaultShapeConfig() ShapeConfig {
	return ShapeConfig{SwingWindow: 4, SymmetryTolerancePct: 0.03}
}

// CupAndHandle requires: a left rim high, a rounded trough (the cup, lowest
// point roughly centered), a right rim high within SymmetryTolerancePct of
// the left rim, followed by a shallow down-drift handle (smaller depth than
// the cup, shorter in duration) and a break back above the rim.
func CupAndHandle(bars []model.Bar, cfg ShapeConfig) ShapeResult {
	highs, _ := localExtremaIndices(bars, cfg.SwingWindow)
	if len(highs) < 2 {
		return ShapeResult{}
	}
	n := len(bars)
	// Try the two most recent rim candidates.
	for a := 0; a < len(highs)-1; a++ {
		left := highs[a]
		right := highs[a+1]
		if right-left < cfg.SwingWindow*3 {
			continue
		}
		leftPrice, rightPrice := bars[left].High, bars[right].High
		if !withinTolerance(leftPrice, rightPrice, cfg.SymmetryTolerancePct) {
			continue
		}
		cupLowIdx := left
		cupLow := bars[left].Low
		for i := left; i <= right; i++ {
			if bars[i].Low < cupLow {
				cupLow = bars[i].Low
				cupLowIdx = i
			}
		}
		cupDepth := (leftPrice - cupLow) / leftPrice
		if cupDepth < 0.1 || cupDepth > 0.5 {
			continue
		}
		// roughly centered trough
		mid := (left + right) / 2
		span := right - left
		if abs(cupLowIdx-mid) > span/3 {
			continue
		}
		// handle: a shallow pullback after the right rim, shorter and
		// shallower than the cup.
		handleEnd := right + span/4
		if handleEnd >= n {
			handleEnd = n - 1
		}
		if handleEnd <= right {
			continue
		}
		handleLow := bars[right].Low
		for i := right; i <= handleEnd; i++ {
			if bars[i].Low < handleLow {
				handleLow = bars[i].Low
			}
		}
		handleDepth := (rightPrice - handleLow) / rightPrice
		if handleDepth <= 0 || handleDepth > cupDepth*0.5 {
			continue
		}
		lastClose := bars[n-1].Close
		breakout := lastClose > rightPrice
		score := 50.0
		if breakout {
			score += 30
		}
		score += 20 * (1 - handleDepth/cupDepth)
		target := rightPrice + (rightPrice - cupLow)
		return ShapeResult{
			Detected:        breakout,
			Score:           clampScore(score),
			KeyPoints:       []int{left, cupLowIdx, right, handleEnd},
			ProjectedTarget: &target,
		}
	}
	return ShapeResult{}
}

// HeadAndShoulders requires a left shoulder, a head (higher high), a right
// shoulder roughly symmetric to the left, and a neckline connecting the two
// troughs between them; detection fires on a close below the neckline.
func HeadAndShoulders(bars []model.Bar, cfg ShapeConfig) ShapeResult {
	highs, lows := localExtremaIndices(bars, cfg.SwingWindow)
	if len(highs) < 3 {
		return ShapeResult{}
	}
	for i := 0; i+2 < len(highs); i++ {
		ls, hd, rs := highs[i], highs[i+1], highs[i+2]
		lp, hp, rp := bars[ls].High, bars[hd].High, bars[rs].High
		if !(hp > lp && hp > rp) {
			continue
		}
		if !withinTolerance(lp, rp, cfg.SymmetryTolerancePct) {
			continue
		}
		neckL := troughBetween(bars, lows, ls, hd)
		neckR := troughBetween(bars, lows, hd, rs)
		if neckL < 0 || neckR < 0 {
			continue
		}
		neckline := (bars[neckL].Low + bars[neckR].Low) / 2
		lastClose := bars[len(bars)-1].Close
		detected := lastClose < neckline
		score := 60.0
		if detected {
			score += 40
		}
		target := neckline - (hp - neckline)
		return ShapeResult{
			Detected:        detected,
			Score:           clampScore(score),
			KeyPoints:       []int{ls, neckL, hd, neckR, rs},
			ProjectedTarget: &target,
		}
	}
	return ShapeResult{}
}

// DoubleTop requires two comparable highs separated by a meaningful trough,
// confirmed by a close below the trough.
func DoubleTop(bars []model.Bar, cfg ShapeConfig) ShapeResult {
	highs, lows := localExtremaIndices(bars, cfg.SwingWindow)
	if len(highs) < 2 {
		return ShapeResult{}
	}
	a, b := highs[len(highs)-2], highs[len(highs)-1]
	pa, pb := bars[a].High, bars[b].High
	if !withinTolerance(pa, pb, cfg.SymmetryTolerancePct) {
		return ShapeResult{}
	}
	trough := troughBetween(bars, lows, a, b)
	if trough < 0 {
		return ShapeResult{}
	}
	neckline := bars[trough].Low
	lastClose := bars[len(bars)-1].Close
	detected := lastClose < neckline
	score := 55.0
	if detected {
		score += 35
	}
	target := neckline - (pa - neckline)
	return ShapeResult{Detected: detected, Score: clampScore(score), KeyPoints: []int{a, trough, b}, ProjectedTarget: &target}
}

// DoubleBottom is DoubleTop's mirror image.
func DoubleBottom(bars []model.Bar, cfg ShapeConfig) ShapeResult {
	highs, lows := localExtremaIndices(bars, cfg.SwingWindow)
	if len(lows) < 2 {
		return ShapeResult{}
	}
	a, b := lows[len(lows)-2], lows[len(lows)-1]
	pa, pb := bars[a].Low, bars[b].Low
	if !withinTolerance(pa, pb, cfg.SymmetryTolerancePct) {
		return ShapeResult{}
	}
	peak := peakBetween(bars, highs, a, b)
	if peak < 0 {
		return ShapeResult{}
	}
	neckline := bars[peak].High
	lastClose := bars[len(bars)-1].Close
	detected := lastClose > neckline
	score := 55.0
	if detected {
		score += 35
	}
	target := neckline + (neckline - pa)
	return ShapeResult{Detected: detected, Score: clampScore(score), KeyPoints: []int{a, peak, b}, ProjectedTarget: &target}
}

// TriangleKind labels the type of a detected triangle.
type TriangleKind string

const (
	TriangleAscending  TriangleKind = "ascending"
	TriangleDescending TriangleKind = "descending"
	TriangleSymmetric  TriangleKind = "symmetric"
)

// Triangle fits trend lines through recent highs and lows over a window and
// classifies the convergence: flat top + rising bottom = ascending, falling
// top + flat bottom = descending, both converging = symmetric.
func Triangle(bars []model.Bar, cfg ShapeConfig, tlCfg TrendLineConfig) (ShapeResult, TriangleKind) {
	up, down := TrendLines(bars, tlCfg)
	if up == nil || down == nil {
		return ShapeResult{}, ""
	}
	flatTol := 0.02
	topFlat := abs64(down.Slope) < flatTol
	bottomFlat := abs64(up.Slope) < flatTol
	bottomRising := up.Slope > flatTol
	topFalling := down.Slope < -flatTol

	var kind TriangleKind
	switch {
	case topFlat && bottomRising:
		kind = TriangleAscending
	case bottomFlat && topFalling:
		kind = TriangleDescending
	case topFalling && bottomRising:
		kind = TriangleSymmetric
	default:
		return ShapeResult{}, ""
	}

	score := 50.0 + 25*up.R2 + 25*down.R2
	lastIdx := len(bars) - 1
	apex := up.Intercept // rough target placeholder; real apex solved below
	if up.Slope != down.Slope {
		apex = (down.Intercept - up.Intercept) / (up.Slope - down.Slope)
	}
	target := up.Slope*apex + up.Intercept
	return ShapeResult{
		Detected:        true,
		Score:           clampScore(score),
		KeyPoints:       []int{up.StartIdx, up.EndIdx, down.StartIdx, down.EndIdx, lastIdx},
		ProjectedTarget: &target,
	}, kind
}

func troughBetween(bars []model.Bar, lows []int, from, to int) int {
	best := -1
	bestVal := 0.0
	for _, i := range lows {
		if i > from && i < to {
			if best == -1 || bars[i].Low < bestVal {
				best = i
				bestVal = bars[i].Low
			}
		}
	}
	return best
}

func peakBetween(bars []model.Bar, highs []int, from, to int) int {
	best := -1
	bestVal := 0.0
	for _, i := range highs {
		if i > from && i < to {
			if best == -1 || bars[i].High > bestVal {
				best = i
				bestVal = bars[i].High
			}
		}
	}
	return best
}

func withinTolerance(a, b, tolPct float64) bool {
	if a == 0 {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff/a <= tolPct
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
