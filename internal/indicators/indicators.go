// Package indicators provides pure technical-analysis functions over price
// series. Functions are total for any non-empty, finite input and never
// allocate state; callers own the price history.
package indicators

import "math"

// neutralRSI is returned while the series is too short to say anything.
const neutralRSI = 50.0

// SMA calculates the simple moving average over the last period values.
// With fewer than period samples it degrades to the latest price.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// EMA calculates the exponential moving average over the series, seeded with
// the SMA of the first period samples. With fewer than period samples it
// degrades to the latest price.
func EMA(prices []float64, period int) float64 {
	series := emaSeries(prices, period)
	if len(series) == 0 {
		if len(prices) == 0 {
			return 0
		}
		return prices[len(prices)-1]
	}
	return series[len(series)-1]
}

// emaSeries returns the EMA value at each index from period-1 onward.
// Empty when the series is shorter than period.
func emaSeries(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)

	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// RSI computes a Wilder-style Relative Strength Index over the last period
// changes. Returns the neutral 50 until period+1 samples exist.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return neutralRSI
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder of the series.
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return neutralRSI
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD returns the histogram value of the standard 12/26/9 MACD: the
// distance between the 12/26 EMA difference and its 9-period signal line.
// Positive means bullish bias. Returns 0 until enough history exists.
func MACD(prices []float64) float64 {
	const (
		fast   = 12
		slow   = 26
		signal = 9
	)
	if len(prices) < slow {
		return 0
	}

	fastSeries := emaSeries(prices, fast)
	slowSeries := emaSeries(prices, slow)

	// Align the two series on their tails and build the MACD line.
	n := len(slowSeries)
	macdLine := make([]float64, n)
	offset := len(fastSeries) - n
	for i := 0; i < n; i++ {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	if len(macdLine) < signal {
		return macdLine[len(macdLine)-1]
	}
	signalSeries := emaSeries(macdLine, signal)
	return macdLine[len(macdLine)-1] - signalSeries[len(signalSeries)-1]
}

// Volatility is the standard deviation of simple returns over the trailing
// window, expressed as a fraction (0.02 = 2%). Returns 0 with fewer than
// three samples.
func Volatility(prices []float64, window int) float64 {
	n := len(prices)
	if window > 0 && n > window {
		prices = prices[n-window:]
		n = window
	}
	if n < 3 {
		return 0
	}

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// Support returns the local minimum over the window.
func Support(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	low := prices[0]
	for _, p := range prices[1:] {
		if p < low {
			low = p
		}
	}
	return low
}

// Resistance returns the local maximum over the window.
func Resistance(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	high := prices[0]
	for _, p := range prices[1:] {
		if p > high {
			high = p
		}
	}
	return high
}
