package cii

import "math"

// HarmonicTables holds per-intensity phase lookups for harmonics 1..nc-1.
// Row k-1 of each table belongs to harmonic k. The tables depend only on the
// kernel and are safe to share between goroutines.
type HarmonicTables struct {
	Cos       [][RangeLevels]float64
	Sin       [][RangeLevels]float64
	ScaledCos [][RangeLevels]float64
	ScaledSin [][RangeLevels]float64

	dc float64
}

// BuildHarmonicTables expands every harmonic of k into its four lookups.
func BuildHarmonicTables(k Kernel) *HarmonicTables {
	n := k.Len() - 1
	if n < 0 {
		n = 0
	}
	t := &HarmonicTables{
		Cos:       make([][RangeLevels]float64, n),
		Sin:       make([][RangeLevels]float64, n),
		ScaledCos: make([][RangeLevels]float64, n),
		ScaledSin: make([][RangeLevels]float64, n),
	}
	if k.Len() > 0 {
		t.dc = k.Coefficients[0]
	}

	for h := 1; h <= n; h++ {
		coeff := k.Coefficients[h]
		row := h - 1
		for v := 0; v < RangeLevels; v++ {
			phase := math.Pi * float64(h) * float64(v) / RangeLevels
			s, c := math.Sincos(phase)
			t.Cos[row][v] = c
			t.Sin[row][v] = s
			t.ScaledCos[row][v] = coeff * c
			t.ScaledSin[row][v] = coeff * s
		}
	}
	return t
}

// Harmonics returns the number of non-DC harmonics, nc-1.
func (t *HarmonicTables) Harmonics() int {
	return len(t.Cos)
}

// DC returns the kernel's zeroth coefficient.
func (t *HarmonicTables) DC() float64 {
	return t.dc
}
