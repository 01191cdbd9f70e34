package models

// Unfitted copies. Backtesting refits an independent pipeline per fold, so
// every model reproduces itself from configuration alone.

// Cloneable is implemented by forecasters that can produce an unfitted copy
// of themselves.
type Cloneable interface {
	CloneUnfitted() Forecaster
}

// CloneUnfitted returns an unfitted copy.
func (n *Naive) CloneUnfitted() Forecaster {
	return &Naive{Lag: n.Lag}
}

// CloneUnfitted returns an unfitted copy.
func (m *SeasonalMovingAverage) CloneUnfitted() Forecaster {
	return &SeasonalMovingAverage{Window: m.Window, Seasonality: m.Seasonality}
}

// CloneUnfitted returns an unfitted copy.
func (l *Linear) CloneUnfitted() Forecaster {
	return &Linear{
		Features: append([]string(nil), l.Features...),
		Alpha:    l.Alpha,
		Trend:    l.Trend,
	}
}

// CloneUnfitted returns an unfitted copy.
func (s *SARIMA) CloneUnfitted() Forecaster {
	return &SARIMA{Order: s.Order, Features: append([]string(nil), s.Features...)}
}

// CloneUnfitted returns an unfitted copy.
func (a *AutoSARIMA) CloneUnfitted() Forecaster {
	return &AutoSARIMA{
		MaxP:     a.MaxP,
		MaxQ:     a.MaxQ,
		MaxD:     a.MaxD,
		M:        a.M,
		MaxSP:    a.MaxSP,
		MaxSQ:    a.MaxSQ,
		Crit:     a.Crit,
		Features: append([]string(nil), a.Features...),
	}
}

// CloneUnfitted returns an unfitted copy.
func (p *Prophet) CloneUnfitted() Forecaster {
	return &Prophet{
		NChangepoints: p.NChangepoints,
		Seasonalities: append([]Seasonality(nil), p.Seasonalities...),
		Alpha:         p.Alpha,
	}
}

// CloneUnfitted returns an unfitted copy.
func (b *Boosted) CloneUnfitted() Forecaster {
	return &Boosted{
		Lags:           append([]int(nil), b.Lags...),
		Features:       append([]string(nil), b.Features...),
		NEstimators:    b.NEstimators,
		LearningRate:   b.LearningRate,
		MaxDepth:       b.MaxDepth,
		MinSamplesLeaf: b.MinSamplesLeaf,
		Subsample:      b.Subsample,
		Seed:           b.Seed,
	}
}
