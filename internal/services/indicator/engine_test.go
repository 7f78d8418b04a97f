package indicator

import (
	"math"
	"testing"
	"time"

	"CoinPilot/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func candlesFromCloses(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return out
}

func TestEMASeedAndSmoothing(t *testing.T) {
	got := EMA([]float64{10, 20, 30}, 9)
	if !almostEqual(got[0], 10) {
		t.Fatalf("expected seed 10, got %v", got[0])
	}
	// alpha = 2/(9+1) = 0.2
	want1 := 0.2*20 + 0.8*10
	if !almostEqual(got[1], want1) {
		t.Fatalf("expected %v, got %v", want1, got[1])
	}
	want2 := 0.2*30 + 0.8*want1
	if !almostEqual(got[2], want2) {
		t.Fatalf("expected %v, got %v", want2, got[2])
	}
}

func TestEMAEmpty(t *testing.T) {
	if got := EMA(nil, 20); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestRSINeutralBeforePeriod(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	got := RSI(closes, 14)
	for i, v := range got {
		if v != 50 {
			t.Fatalf("expected neutral 50 at %d, got %v", i, v)
		}
	}
}

func TestRSIMonotonicGainsIs100(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	got := RSI(closes, 14)
	if got[len(got)-1] != 100 {
		t.Fatalf("expected 100 on monotonic gains, got %v", got[len(got)-1])
	}
}

func TestRSIMonotonicLossesNearZero(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	got := RSI(closes, 14)
	if got[len(got)-1] != 0 {
		t.Fatalf("expected 0 on monotonic losses, got %v", got[len(got)-1])
	}
}

func TestRSIFlatSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	// zero average loss reports 100, never divides by zero
	got := RSI(closes, 14)
	if got[len(got)-1] != 100 {
		t.Fatalf("expected 100 on flat series, got %v", got[len(got)-1])
	}
}

func TestMACDHistogramIsLineMinusSignal(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	line, signal, hist := MACD(closes, 12, 26, 9)
	if len(line) != 60 || len(signal) != 60 || len(hist) != 60 {
		t.Fatalf("unexpected lengths %d %d %d", len(line), len(signal), len(hist))
	}
	for i := range closes {
		if !almostEqual(hist[i], line[i]-signal[i]) {
			t.Fatalf("histogram mismatch at %d", i)
		}
	}
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	sma, upper, lower := BollingerBands(closes, 20, 2)
	for i := 19; i < len(closes); i++ {
		if !(lower[i] < sma[i] && sma[i] < upper[i]) {
			t.Fatalf("band ordering violated at %d: %v %v %v", i, lower[i], sma[i], upper[i])
		}
	}
}

func TestBollingerDegenerateBeforePeriod(t *testing.T) {
	sma, upper, lower := BollingerBands([]float64{1, 2, 3}, 20, 2)
	for i := range sma {
		if sma[i] != 0 || upper[i] != 0 || lower[i] != 0 {
			t.Fatalf("expected zeros before period at %d", i)
		}
	}
}

func TestBollingerSampleStdDev(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	sma, upper, _ := BollingerBands(closes, 8, 2)
	// mean 5, sample variance 32/7
	if !almostEqual(sma[7], 5) {
		t.Fatalf("expected mean 5, got %v", sma[7])
	}
	want := 5 + 2*math.Sqrt(32.0/7.0)
	if !almostEqual(upper[7], want) {
		t.Fatalf("expected upper %v, got %v", want, upper[7])
	}
}

func TestATRConstantRange(t *testing.T) {
	candles := candlesFromCloses(make([]float64, 30))
	for i := range candles {
		candles[i].Close = 100
		candles[i].High = 101
		candles[i].Low = 99
	}
	got := ATR(candles, 14)
	if !almostEqual(got[len(got)-1], 2) {
		t.Fatalf("expected ATR 2, got %v", got[len(got)-1])
	}
	// insufficient lookback reports zero
	if got[5] != 0 {
		t.Fatalf("expected 0 before period, got %v", got[5])
	}
}

func TestComputePublishesCurrentValues(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	snap := NewEngine().Compute(candlesFromCloses(closes))

	for _, name := range []string{
		NameEMA20, NameEMA50, NameRSI, NameMACDLine, NameSignalLine,
		NameHistogram, NameSMA, NameUpperBand, NameLowerBand, NameATR,
	} {
		if _, ok := snap.Current[name]; !ok {
			t.Fatalf("missing current value for %s", name)
		}
		if len(snap.Series[name]) != 60 {
			t.Fatalf("series %s has length %d", name, len(snap.Series[name]))
		}
	}
	last := len(closes) - 1
	if snap.Current[NameRSI] != snap.Series[NameRSI][last] {
		t.Fatalf("current RSI does not match series tail")
	}
}
