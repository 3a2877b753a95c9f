package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Divergence accumulates squared discrepancies between two trajectories and
// counts the samples at or above a flag threshold.
type Divergence struct {
	eps     float64
	total   float64
	flagged int
	series  []float64
}

func NewDivergence(eps float64) *Divergence {
	return &Divergence{eps: eps}
}

// Add records v and reports whether it reaches the flag threshold.
func (d *Divergence) Add(v float64) bool {
	d.total += v
	d.series = append(d.series, v)
	if v >= d.eps {
		d.flagged++
		return true
	}
	return false
}

func (d *Divergence) Value() float64 { return d.total }
func (d *Divergence) Flagged() int   { return d.flagged }

func (d *Divergence) Series() []float64 {
	out := make([]float64, len(d.series))
	copy(out, d.series)
	return out
}

// Summary describes the per-sample distribution of a divergence series.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
}

func (d *Divergence) Summary() Summary {
	var s Summary
	if len(d.series) == 0 {
		return s
	}
	s.Mean = stat.Mean(d.series, nil)
	if len(d.series) > 1 {
		s.StdDev = stat.StdDev(d.series, nil)
	}
	s.Max = floats.Max(d.series)
	return s
}
