package transform

// Unfitted copies. Backtesting refits an independent pipeline per fold, so
// every transform must be able to reproduce itself without fitted state.

// Clone returns an unfitted copy.
func (s *StandardScaler) Clone() Transform {
	return &StandardScaler{InColumn: s.InColumn, WithMean: s.WithMean, WithStd: s.WithStd}
}

// Clone returns an unfitted copy.
func (m *MinMaxScaler) Clone() Transform {
	return &MinMaxScaler{InColumn: m.InColumn, FeatureRange: m.FeatureRange}
}

// Clone returns an unfitted copy.
func (b *BoxCox) Clone() Transform {
	return &BoxCox{InColumn: b.InColumn}
}

// Clone returns an unfitted copy.
func (l *Log) Clone() Transform {
	return &Log{InColumn: l.InColumn}
}

// Clone returns an unfitted copy.
func (l *Lag) Clone() Transform {
	return &Lag{InColumn: l.InColumn, Lags: append([]int(nil), l.Lags...)}
}

// Clone returns an unfitted copy.
func (r *Rolling) Clone() Transform {
	return &Rolling{InColumn: r.InColumn, Window: r.Window, Stats: append([]string(nil), r.Stats...)}
}

// Clone returns an unfitted copy.
func (d *Difference) Clone() Transform {
	return &Difference{InColumn: d.InColumn, Order: d.Order, Period: d.Period}
}

// Clone returns an unfitted copy with every step cloned.
func (c *Chain) Clone() Transform {
	cloned := make([]Transform, len(c.transforms))
	for i, t := range c.transforms {
		cloned[i] = t.Clone()
	}
	return &Chain{transforms: cloned}
}
