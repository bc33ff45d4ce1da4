package strategy

import (
	"fmt"
	"math"
	"time"

	"agent-core/internal/indicators"
)

// scored blends several indicators into one weighted score in [-1, 1].
// Positive scores favor entries, strongly negative scores exit an open
// position, and anything in between holds.
type scored struct {
	id     string
	symbol string
	buf    *PriceBuffer
	thr    *throttle

	weightRSI    float64
	weightMACD   float64
	weightTrend  float64
	buyScore     float64
	exitScore    float64
	scaleOutGain float64
	minHistory   int
}

func newScored(id, symbol string, params map[string]float64) *scored {
	return &scored{
		id:           id,
		symbol:       symbol,
		buf:          NewPriceBuffer(int(param(params, "history", 100))),
		thr:          newThrottle(3*time.Minute, 8, 30),
		weightRSI:    param(params, "weight_rsi", 0.4),
		weightMACD:   param(params, "weight_macd", 0.35),
		weightTrend:  param(params, "weight_trend", 0.25),
		buyScore:     param(params, "buy_score", 0.35),
		exitScore:    param(params, "exit_score", -0.35),
		scaleOutGain: param(params, "scale_out_gain_pct", 4),
		minHistory:   27, // slow MACD EMA plus one
	}
}

func (s *scored) Name() string { return KindScored }

func (s *scored) GenerateSignal(price float64, account AccountState, positions []Position) Signal {
	if !isFinite(price) || !isFinite(account.Equity) {
		return hold(price, "non-finite price or equity")
	}
	s.buf.Add(price)

	if reason, stop := s.thr.blocked(); stop {
		return hold(price, reason)
	}
	if s.buf.Len() < s.minHistory {
		return hold(price, fmt.Sprintf("warming up: %d/%d samples", s.buf.Len(), s.minHistory))
	}

	score := s.score()
	confidence := math.Min(math.Abs(score), 1)

	pos, open := findPosition(positions, s.symbol)
	if !open {
		if score >= s.buyScore {
			s.thr.markTraded()
			return Signal{
				Action:     ActionBuy,
				Price:      price,
				Confidence: confidence,
				Reason:     fmt.Sprintf("score %.2f above entry threshold %.2f", score, s.buyScore),
			}
		}
		return hold(price, fmt.Sprintf("score %.2f below entry threshold %.2f", score, s.buyScore))
	}

	if score <= s.exitScore {
		s.thr.markTraded()
		return Signal{
			Action:     reduceAction(pos),
			Quantity:   pos.Quantity,
			Price:      price,
			Confidence: confidence,
			Reason:     fmt.Sprintf("score %.2f reversed below %.2f, closing", score, s.exitScore),
		}
	}
	if gain := gainPercent(pos, price); gain >= s.scaleOutGain {
		s.thr.markTraded()
		return Signal{
			Action:     reduceAction(pos),
			Quantity:   pos.Quantity / 2,
			Price:      price,
			Confidence: 0.5,
			Reason:     fmt.Sprintf("scale out: gain %.2f%% with score %.2f", gain, score),
		}
	}
	return hold(price, fmt.Sprintf("score %.2f, holding", score))
}

// score combines RSI displacement, MACD bias and trend position. High
// volatility halves the result.
func (s *scored) score() float64 {
	prices := s.buf.Prices()
	price := prices[len(prices)-1]

	rsiScore := (50 - indicators.RSI(prices, 14)) / 50

	macdScore := 0.0
	if macd := indicators.MACD(prices); macd > 0 {
		macdScore = 1
	} else if macd < 0 {
		macdScore = -1
	}

	trendScore := -1.0
	if price > indicators.EMA(prices, 21) {
		trendScore = 1
	}

	score := s.weightRSI*rsiScore + s.weightMACD*macdScore + s.weightTrend*trendScore
	if indicators.Volatility(prices, 20) > 0.04 {
		score /= 2
	}
	return score
}
