package models

import (
	"math"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/stats"
)

// Conditional-sum-of-squares estimation for one segment. The series is
// differenced (non-seasonal first, then seasonal), the ARMA recursion is run
// over the differenced series and parameters descend the squared-error
// gradient with momentum and a decaying learning rate.

const (
	cssMaxIter      = 200
	cssTolerance    = 1e-8
	cssLearningRate = 0.005
	cssMomentum     = 0.9
	cssDecay        = 0.99
	cssPatience     = 20
)

func (st *sarimaState) fit(series []float64) error {
	o := st.order
	st.data = append([]float64(nil), series...)

	diff := st.data
	for i := 0; i < o.D; i++ {
		diff = diffOnce(diff, 1)
		if len(diff) == 0 {
			return errors.NewValueError("SARIMA", "differencing exhausted the series")
		}
	}
	for i := 0; i < o.SD; i++ {
		diff = diffOnce(diff, o.M)
		if len(diff) == 0 {
			return errors.NewValueError("SARIMA", "seasonal differencing exhausted the series")
		}
	}
	st.diffData = diff

	st.initCoeffs()
	if err := st.optimizeCSS(); err != nil {
		return err
	}
	st.calculateIC()
	st.buildFittedOriginal()
	return nil
}

func diffOnce(values []float64, period int) []float64 {
	if len(values) <= period {
		return nil
	}
	out := make([]float64, len(values)-period)
	for t := period; t < len(values); t++ {
		out[t-period] = values[t] - values[t-period]
	}
	return out
}

// initCoeffs seeds AR terms from the autocorrelation of the differenced
// series and MA terms with a small constant.
func (st *sarimaState) initCoeffs() {
	o := st.order
	st.arCoeffs = make([]float64, o.P)
	st.maCoeffs = make([]float64, o.Q)
	st.sarCoeffs = make([]float64, o.SP)
	st.smaCoeffs = make([]float64, o.SQ)

	var sum float64
	for _, v := range st.diffData {
		sum += v
	}
	st.intercept = sum / float64(len(st.diffData))

	if o.P > 0 {
		if acf, err := stats.ACF(st.diffData, o.P); err == nil {
			for i := 0; i < o.P && i+1 < len(acf); i++ {
				st.arCoeffs[i] = acf[i+1] * 0.5
			}
		}
	}
	if o.SP > 0 {
		if acf, err := stats.ACF(st.diffData, o.SP*o.M); err == nil {
			for i := 0; i < o.SP; i++ {
				if idx := (i + 1) * o.M; idx < len(acf) {
					st.sarCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range st.maCoeffs {
		st.maCoeffs[i] = 0.1
	}
	for i := range st.smaCoeffs {
		st.smaCoeffs[i] = 0.1
	}
}

// armaPredict runs the ARMA recursion at position t of the differenced
// series given the residuals computed so far.
func (st *sarimaState) armaPredict(y, residuals []float64, t, bound int) float64 {
	o := st.order
	pred := st.intercept
	for i := 0; i < o.P && t-i-1 >= 0; i++ {
		pred += st.arCoeffs[i] * (y[t-i-1] - st.intercept)
	}
	for i := 0; i < o.SP; i++ {
		if lag := (i + 1) * o.M; t-lag >= 0 {
			pred += st.sarCoeffs[i] * (y[t-lag] - st.intercept)
		}
	}
	for i := 0; i < o.Q && t-i-1 >= 0; i++ {
		if t-i-1 < bound {
			pred += st.maCoeffs[i] * residuals[t-i-1]
		}
	}
	for i := 0; i < o.SQ; i++ {
		if lag := (i + 1) * o.M; t-lag >= 0 && t-lag < bound {
			pred += st.smaCoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

func (st *sarimaState) optimizeCSS() error {
	o := st.order
	y := st.diffData
	n := len(y)

	startIdx := o.P
	if o.Q > startIdx {
		startIdx = o.Q
	}
	if s := o.SP * o.M; s > startIdx {
		startIdx = s
	}
	if s := o.SQ * o.M; s > startIdx {
		startIdx = s
	}
	if startIdx >= n-10 {
		startIdx = 0
	}

	lr := cssLearningRate
	arMom := make([]float64, o.P)
	maMom := make([]float64, o.Q)
	sarMom := make([]float64, o.SP)
	smaMom := make([]float64, o.SQ)

	bestSSE := math.Inf(1)
	bestAR := make([]float64, o.P)
	bestMA := make([]float64, o.Q)
	bestSAR := make([]float64, o.SP)
	bestSMA := make([]float64, o.SQ)
	noImprove := 0
	converged := false

	residuals := make([]float64, n)
	for iter := 0; iter < cssMaxIter; iter++ {
		var sse float64
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - st.armaPredict(y, residuals, t, n)
			sse += residuals[t] * residuals[t]
		}
		if err := errors.CheckScalar("SARIMA.CSS", sse, iter); err != nil {
			return err
		}

		if sse < bestSSE {
			if iter > 0 && bestSSE-sse < cssTolerance {
				converged = true
			}
			bestSSE = sse
			copy(bestAR, st.arCoeffs)
			copy(bestMA, st.maCoeffs)
			copy(bestSAR, st.sarCoeffs)
			copy(bestSMA, st.smaCoeffs)
			noImprove = 0
		} else {
			noImprove++
		}
		if converged || noImprove > cssPatience {
			converged = true
			break
		}

		arGrad := make([]float64, o.P)
		maGrad := make([]float64, o.Q)
		sarGrad := make([]float64, o.SP)
		smaGrad := make([]float64, o.SQ)
		for t := startIdx; t < n; t++ {
			for i := 0; i < o.P && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - st.intercept)
			}
			for i := 0; i < o.SP; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - st.intercept)
				}
			}
			for i := 0; i < o.Q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < o.SQ; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		nf := float64(n)
		for i := 0; i < o.P; i++ {
			arMom[i] = cssMomentum*arMom[i] + lr*arGrad[i]/nf
			st.arCoeffs[i] = clampCoeff(st.arCoeffs[i] - arMom[i])
		}
		for i := 0; i < o.SP; i++ {
			sarMom[i] = cssMomentum*sarMom[i] + lr*sarGrad[i]/nf
			st.sarCoeffs[i] = clampCoeff(st.sarCoeffs[i] - sarMom[i])
		}
		for i := 0; i < o.Q; i++ {
			maMom[i] = cssMomentum*maMom[i] + lr*maGrad[i]/nf
			st.maCoeffs[i] = clampCoeff(st.maCoeffs[i] - maMom[i])
		}
		for i := 0; i < o.SQ; i++ {
			smaMom[i] = cssMomentum*smaMom[i] + lr*smaGrad[i]/nf
			st.smaCoeffs[i] = clampCoeff(st.smaCoeffs[i] - smaMom[i])
		}
		lr *= cssDecay
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SARIMA.CSS", cssMaxIter,
			"gradient descent reached the iteration cap"))
	}

	copy(st.arCoeffs, bestAR)
	copy(st.maCoeffs, bestMA)
	copy(st.sarCoeffs, bestSAR)
	copy(st.smaCoeffs, bestSMA)

	st.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		st.residuals[t] = y[t] - st.armaPredict(y, st.residuals, t, n)
	}

	var sse float64
	count := 0
	for t := startIdx; t < n; t++ {
		sse += st.residuals[t] * st.residuals[t]
		count++
	}
	if k := st.order.numParams(); count > k {
		st.variance = sse / float64(count-k)
	} else {
		st.variance = sse / float64(count)
	}
	return nil
}

func clampCoeff(v float64) float64 {
	if v < -0.99 {
		return -0.99
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}

func (st *sarimaState) calculateIC() {
	n := len(st.residuals)
	k := st.order.numParams()

	var sse float64
	for _, r := range st.residuals {
		sse += r * r
	}

	if st.variance > 0 {
		nf := float64(n)
		st.logLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(st.variance) - sse/(2*st.variance)
	} else {
		st.logLik = math.Inf(-1)
	}

	kf := float64(k)
	nf := float64(n)
	st.aic = -2*st.logLik + 2*kf
	if nf-kf-1 > 0 {
		st.aicc = st.aic + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		st.aicc = math.Inf(1)
	}
	st.bic = -2*st.logLik + kf*math.Log(nf)
}

// buildFittedOriginal maps one-step residuals back to the original scale.
// Differencing is linear, so the one-step prediction of y_t equals
// y_t minus the residual at the aligned differenced position. The
// differencing head has no prediction and stays NaN.
func (st *sarimaState) buildFittedOriginal() {
	offset := st.order.D + st.order.SD*st.order.M
	st.fittedOrig = make([]float64, len(st.data))
	for t := range st.fittedOrig {
		if t < offset {
			st.fittedOrig[t] = math.NaN()
			continue
		}
		st.fittedOrig[t] = st.data[t] - st.residuals[t-offset]
	}
}

// predict forecasts horizon steps on the original scale and returns the
// per-step standard errors. Future residuals are zero; the error variance
// grows with the horizon for integrated series.
func (st *sarimaState) predict(horizon int) (point, se []float64) {
	o := st.order
	y := st.diffData
	n := len(y)

	extY := make([]float64, n+horizon)
	copy(extY, y)
	extRes := make([]float64, n+horizon)
	copy(extRes, st.residuals)

	for h := 0; h < horizon; h++ {
		extY[n+h] = st.armaPredict(extY, extRes, n+h, n)
	}

	point = st.integrate(extY[n:])

	se = make([]float64, horizon)
	base := math.Sqrt(st.variance)
	for h := 0; h < horizon; h++ {
		growth := 1.0
		if o.D > 0 {
			growth *= math.Sqrt(float64(h + 1))
		}
		if o.SD > 0 && o.M > 0 {
			growth *= math.Sqrt(float64(h/o.M + 1))
		}
		se[h] = base * growth
	}
	return point, se
}

// integrate undoes differencing: seasonal first (it was applied last), then
// non-seasonal by cumulative summing from the last observed level.
func (st *sarimaState) integrate(forecasts []float64) []float64 {
	o := st.order
	result := append([]float64(nil), forecasts...)

	nonSeasonal := st.data
	for i := 0; i < o.D; i++ {
		nonSeasonal = diffOnce(nonSeasonal, 1)
	}

	if o.SD > 0 && o.M > 0 {
		nDiff := len(nonSeasonal)
		for i := 0; i < o.SD; i++ {
			for j := range result {
				if j < o.M {
					if idx := nDiff - o.M + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonal[idx]
					}
				} else {
					result[j] += result[j-o.M]
				}
			}
		}
	}

	for i := 0; i < o.D; i++ {
		last := st.data[len(st.data)-1]
		for j := range result {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}
