// Package vcp detects volatility-contraction patterns (§4.2): a sequence of
// price contractions narrowing over time, volume drying up, ending near a
// pivot breakout price.
package vcp

import (
	"investment-analyzer/internal/model"
)

// Config tunes the detector. Defaults match spec.md §4.2.
type Config struct {
	SwingWindow             int     // local-window pivot test half-width (default 3-5 bars)
	MinContractions         int     // default 2
	MaxFirstDepthPct        float64 // default 0.35
	DepthDecreaseRatio      float64 // default 0.7
	FinalDepthMaxPct        float64 // default 0.10
	PivotDistanceThresholdPct float64 // default 0.02
}

func DefaultConfig() Config {
	return Config{
		SwingWindow:               4,
		MinContractions:           2,
		MaxFirstDepthPct:          0.35,
		DepthDecreaseRatio:        0.7,
		FinalDepthMaxPct:          0.10,
		PivotDistanceThresholdPct: 0.02,
	}
}

// Stage is the lifecycle stage of a detected (or attempted) VCP pattern.
type Stage string

const (
	StageNone      Stage = "none"
	StageForming   Stage = "forming"
	StageMature    Stage = "mature"
	StageBreakout  Stage = "breakout"
)

// Contraction is a (high, low) swing pair within the sequence.
type Contraction struct {
	HighIndex int
	LowIndex  int
	High      float64
	Low       float64
	Depth     float64 // (high-low)/high
	AvgVolume float64
}

// Result is the full VCP detection outcome.
type Result struct {
	IsVCP            bool
	Score            float64
	Contractions     []Contraction
	DepthSequence    []float64
	PivotPrice       float64
	PivotDistancePct float64
	Stage            Stage
	Signals          []string
}

type swing struct {
	index  int
	price  float64
	isHigh bool
}

// extractSwings finds alternating swing highs/lows using a local-window
// pivot test: bar i is a swing high if no bar within +/-window has a
// higher high, and a swing low if none has a lower low.
func extractSwings(bars []model.Bar, window int) []swing {
	var swings []swing
	n := len(bars)
	for i := window; i < n-window; i++ {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].High > bars[i].High {
				isHigh = false
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			swings = append(swings, swing{index: i, price: bars[i].High, isHigh: true})
		}
		if isLow && !isHigh {
			swings = append(swings, swing{index: i, price: bars[i].Low, isHigh: false})
		}
	}
	return swings
}

// buildContractions pairs each swing high with the swing low right after
// it, in chronological order, then scans the pairs left to right keeping a
// right-anchored sequence where each contraction's high does not exceed the
// previous contraction's high. A contraction with a higher high, or wider
// than its predecessor, resets the sequence from that point (§4.2 edge case).
func buildContractions(bars []model.Bar, swings []swing) []Contraction {
	// Pair consecutive high->low swings in chronological order first.
	var raw []Contraction
	for i := 0; i < len(swings)-1; i++ {
		if swings[i].isHigh && !swings[i+1].isHigh && swings[i+1].index > swings[i].index {
			high := swings[i].price
			low := swings[i+1].price
			if high <= 0 || low > high {
				continue
			}
			depth := (high - low) / high
			raw = append(raw, Contraction{
				HighIndex: swings[i].index,
				LowIndex:  swings[i+1].index,
				High:      high,
				Low:       low,
				Depth:     depth,
				AvgVolume: avgVolume(bars, swings[i].index, swings[i+1].index),
			})
		}
	}

	// Build the right-anchored sequence: scan left to right, resetting the
	// running sequence whenever a contraction's high exceeds the previous
	// contraction's high or its depth exceeds the previous depth.
	var seq []Contraction
	for _, c := range raw {
		if len(seq) > 0 && (c.High > seq[len(seq)-1].High || c.Depth > seq[len(seq)-1].Depth) {
			seq = seq[:0]
		}
		seq = append(seq, c)
	}
	return seq
}

func avgVolume(bars []model.Bar, from, to int) float64 {
	if from > to {
		from, to = to, from
	}
	var sum float64
	count := 0
	for i := from; i <= to && i < len(bars); i++ {
		sum += float64(bars[i].Volume)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Detect runs the full VCP pipeline over an ordered bar series.
func Detect(bars []model.Bar, cfg Config) (Result, error) {
	if err := model.ValidateSeries(bars); err != nil {
		return Result{}, err
	}
	if len(bars) < 2*cfg.SwingWindow+2 {
		return Result{IsVCP: false, Score: 0, Stage: StageNone}, nil
	}

	swings := extractSwings(bars, cfg.SwingWindow)
	contractions := buildContractions(bars, swings)

	if len(contractions) < cfg.MinContractions {
		return Result{IsVCP: false, Score: 0, Stage: StageNone, Contractions: contractions}, nil
	}

	depthSeq := make([]float64, len(contractions))
	for i, c := range contractions {
		depthSeq[i] = c.Depth
	}

	var signals []string

	// Rule 2: first contraction depth <= MaxFirstDepthPct.
	firstDepthOK := depthSeq[0] <= cfg.MaxFirstDepthPct
	if !firstDepthOK {
		signals = append(signals, "first contraction too deep")
	}

	// Rule 3: each subsequent depth smaller than predecessor by factor <=
	// DepthDecreaseRatio; final depth should be small.
	decreasingOK := true
	for i := 1; i < len(depthSeq); i++ {
		if depthSeq[i-1] == 0 || depthSeq[i] > depthSeq[i-1]*cfg.DepthDecreaseRatio {
			decreasingOK = false
			break
		}
	}
	finalDepthOK := depthSeq[len(depthSeq)-1] < cfg.FinalDepthMaxPct
	if !decreasingOK {
		signals = append(signals, "depth sequence not sufficiently decreasing")
	}
	if !finalDepthOK {
		signals = append(signals, "final contraction depth not tight enough")
	}

	// Rule 4: volume dry-up — each later contraction's avg volume lower
	// than the previous.
	dryUpOK := true
	for i := 1; i < len(contractions); i++ {
		if contractions[i].AvgVolume >= contractions[i-1].AvgVolume {
			dryUpOK = false
			break
		}
	}
	if !dryUpOK {
		signals = append(signals, "volume not drying up across contractions")
	}

	pivot := contractions[len(contractions)-1].High
	lastClose := bars[len(bars)-1].Close
	var pivotDistPct float64
	if pivot != 0 {
		pivotDistPct = (pivot - lastClose) / pivot
	}
	pivotOK := pivotDistPct >= -0.001 && pivotDistPct <= cfg.PivotDistanceThresholdPct
	if !pivotOK {
		signals = append(signals, "close not within pivot distance threshold")
	}

	countScore := containmentScore(len(contractions), cfg.MinContractions)
	depthScore := boolScore(firstDepthOK) * 0.5 + boolScore(decreasingOK)*0.3 + boolScore(finalDepthOK)*0.2
	volumeScore := boolScore(dryUpOK)
	pivotScore := boolScore(pivotOK)

	score := countScore*30 + depthScore*30 + volumeScore*25 + pivotScore*15

	isVCP := firstDepthOK && decreasingOK && dryUpOK && pivotOK && len(contractions) >= cfg.MinContractions

	stage := StageNone
	switch {
	case isVCP && lastClose >= pivot:
		stage = StageBreakout
		signals = append(signals, "breakout above pivot")
	case isVCP:
		stage = StageMature
	case len(contractions) >= 1:
		stage = StageForming
	}

	if isVCP && lastClose > pivot {
		signals = append(signals, "breakout confirmed")
	}

	return Result{
		IsVCP:            isVCP,
		Score:            score,
		Contractions:     contractions,
		DepthSequence:    depthSeq,
		PivotPrice:       pivot,
		PivotDistancePct: pivotDistPct,
		Stage:            stage,
		Signals:          signals,
	}, nil
}

func containmentScore(count, min int) float64 {
	if count < min {
		return 0
	}
	ideal := min + 2 // ideal 3-5 when min=2 -> up to 4; generous cap
	if count >= ideal {
		return 1
	}
	return float64(count-min+1) / float64(ideal-min+1)
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
