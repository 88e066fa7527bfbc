package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Default smoothing parameters used by every trend chart.
const (
	DefaultFrac = 0.2
	DefaultIter = 3
)

// ErrLengthMismatch is returned when x and y differ in length.
var ErrLengthMismatch = errors.New("analysis: x and y lengths differ")

// Point is one (x, y) pair.
type Point struct {
	X, Y float64
}

// Lowess smooths y against x with locally weighted linear regression. Each
// fit uses the nearest frac*n points weighted by the tricube kernel, and
// iter robustness passes down-weight large residuals with the bisquare
// kernel. The result is sorted by x.
func Lowess(x, y []float64, frac float64, iter int) ([]Point, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}
	if frac <= 0 || frac > 1 {
		return nil, fmt.Errorf("analysis: lowess frac %v outside (0, 1]", frac)
	}

	n := len(x)
	pts := make([]Point, n)
	for i := range x {
		pts[i] = Point{x[i], y[i]}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	if n < 2 {
		return pts, nil
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}

	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}
	fitted := make([]float64, n)
	resid := make([]float64, n)
	// Residual scales below this are rounding noise from an exact fit.
	eps := 1e-7 * floats.Norm(ys, 1) / float64(n)

	for it := 0; ; it++ {
		fitAll(xs, ys, robust, k, fitted)
		if it >= iter {
			break
		}
		for i := range resid {
			resid[i] = math.Abs(ys[i] - fitted[i])
		}
		s := median(resid)
		if s <= eps {
			s = stat.Mean(resid, nil)
		}
		if s <= eps {
			break
		}
		for i, r := range resid {
			u := r / (6 * s)
			if u < 1 {
				robust[i] = (1 - u*u) * (1 - u*u)
			} else {
				robust[i] = 0
			}
		}
	}

	for i := range pts {
		pts[i].Y = fitted[i]
	}
	return pts, nil
}

// fitAll computes the local fit at every x. xs must be sorted.
func fitAll(xs, ys, robust []float64, k int, out []float64) {
	n := len(xs)
	left, right := 0, k-1
	w := make([]float64, k)
	tri := make([]float64, k)
	for i := 0; i < n; i++ {
		for right+1 < n && xs[i]-xs[left] > xs[right+1]-xs[i] {
			left++
			right++
		}
		radius := math.Max(xs[i]-xs[left], xs[right]-xs[i])
		wx, wy := xs[left:right+1], ys[left:right+1]
		for j := range wx {
			d := 0.0
			if radius > 0 {
				d = math.Abs(wx[j]-xs[i]) / radius
			}
			tri[j] = 0
			if d < 1 {
				c := 1 - d*d*d
				tri[j] = c * c * c
			}
			w[j] = tri[j] * robust[left+j]
		}
		ww := w[:len(wx)]
		if floats.Sum(ww) <= 0 {
			// Every neighbour was rejected as an outlier; fall back to
			// distance weights alone.
			ww = tri[:len(wx)]
		}
		out[i] = localFit(xs[i], ys[i], wx, wy, ww)
	}
}

func localFit(x0, y0 float64, xs, ys, w []float64) float64 {
	sum := floats.Sum(w)
	if sum <= 0 {
		return y0
	}
	// Rescale so the weights sum to the window size; the regression is
	// invariant to scale but gonum's weighted variance divides by sum-1.
	floats.Scale(float64(len(w))/sum, w)

	mx := stat.Mean(xs, w)
	var spread float64
	for j, x := range xs {
		spread += w[j] * (x - mx) * (x - mx)
	}
	if spread <= 1e-12*float64(len(w)) {
		return stat.Mean(ys, w)
	}
	alpha, beta := stat.LinearRegression(xs, ys, w, false)
	return alpha + beta*x0
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Smooth runs Lowess with the default parameters over y indexed by
// position, which is how season and debut-year series are smoothed.
func Smooth(y []float64) ([]Point, error) {
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	return Lowess(x, y, DefaultFrac, DefaultIter)
}
