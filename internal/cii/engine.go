package cii

import (
	"context"
	"image"
	"math"

	"golang.org/x/sync/errgroup"
)

// plan lists the window passes for one target plane.
type plan struct {
	numerator   []windowPass
	denominator []windowPass
}

// newPlan expands the tables into passes. The denominator's DC term is a
// constant and is not part of the plan; see fillDC.
func newPlan(t *HarmonicTables) plan {
	p := plan{
		numerator:   make([]windowPass, 0, 2*t.Harmonics()+1),
		denominator: make([]windowPass, 0, 2*t.Harmonics()),
	}

	dc := t.DC()
	p.numerator = append(p.numerator, windowPass{
		weight: lutOf(func(v int) float64 { return dc * float64(v) }),
	})

	for h := 0; h < t.Harmonics(); h++ {
		cos, sin := &t.Cos[h], &t.Sin[h]
		p.denominator = append(p.denominator,
			windowPass{weight: cos, phase: &t.ScaledCos[h]},
			windowPass{weight: sin, phase: &t.ScaledSin[h]},
		)
		p.numerator = append(p.numerator,
			windowPass{weight: lutOf(func(v int) float64 { return float64(v) * cos[v] }), phase: &t.ScaledCos[h]},
			windowPass{weight: lutOf(func(v int) float64 { return float64(v) * sin[v] }), phase: &t.ScaledSin[h]},
		)
	}
	return p
}

func (p plan) len() int {
	return len(p.numerator) + len(p.denominator)
}

// planes are one worker's accumulation buffers and scratch table.
type planes struct {
	num, den []float64
	table    *sumTable
}

func newPlanes(width, height int) *planes {
	return &planes{
		num:   make([]float64, width*height),
		den:   make([]float64, width*height),
		table: newSumTable(width, height),
	}
}

// run applies pass idx of p to the worker's planes.
func (w *planes) run(img *Gray, r int, valid image.Rectangle, p plan, idx int) {
	if idx < len(p.numerator) {
		w.table.addWindowed(w.num, img, r, valid, p.numerator[idx])
		return
	}
	w.table.addWindowed(w.den, img, r, valid, p.denominator[idx-len(p.numerator)])
}

// accumulate runs every pass of p and returns the summed numerator and
// denominator planes. With workers > 1 the passes are spread over that many
// goroutines, each with private planes, and reduced at the end.
func accumulate(ctx context.Context, img *Gray, r int, valid image.Rectangle, t *HarmonicTables, p plan, workers int) (*planes, error) {
	total := p.len()
	if workers > total {
		workers = total
	}

	if workers <= 1 {
		acc := newPlanes(img.Width, img.Height)
		for idx := 0; idx < total; idx++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			acc.run(img, r, valid, p, idx)
		}
		fillDC(acc.den, img.Width, r, valid, t.DC())
		return acc, nil
	}

	parts := make([]*planes, workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for wi := range parts {
		wi := wi // per-iteration copy; go 1.21 loop-variable semantics
		g.Go(func() error {
			part := newPlanes(img.Width, img.Height)
			for idx := wi; idx < total; idx += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				part.run(img, r, valid, p, idx)
			}
			parts[wi] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := parts[0]
	for _, part := range parts[1:] {
		for i := valid.Min.Y; i < valid.Max.Y; i++ {
			row := i * img.Width
			for j := valid.Min.X; j < valid.Max.X; j++ {
				acc.num[row+j] += part.num[row+j]
				acc.den[row+j] += part.den[row+j]
			}
		}
	}
	fillDC(acc.den, img.Width, r, valid, t.DC())
	return acc, nil
}

// fillDC adds the harmonic-0 weight, dc·(2r+1)², to every valid pixel.
func fillDC(den []float64, width, r int, valid image.Rectangle, dc float64) {
	side := float64(2*r + 1)
	c := dc * side * side
	for i := valid.Min.Y; i < valid.Max.Y; i++ {
		row := i * width
		for j := valid.Min.X; j < valid.Max.X; j++ {
			den[row+j] += c
		}
	}
}

// divide writes numerator/(denominator·RangeLevels) into dst over valid.
// Pixels with a non-positive or non-finite weight fall back to their own
// intensity; the count of such pixels is returned.
func divide(dst *Float32, img *Gray, acc *planes, valid image.Rectangle) int {
	degenerate := 0
	for i := valid.Min.Y; i < valid.Max.Y; i++ {
		row := i * img.Width
		for j := valid.Min.X; j < valid.Max.X; j++ {
			den := acc.den[row+j]
			if !(den > 0) || math.IsInf(den, 0) {
				dst.Pix[row+j] = float32(img.Pix[row+j]) / RangeLevels
				degenerate++
				continue
			}
			dst.Pix[row+j] = float32(acc.num[row+j] / (den * RangeLevels))
		}
	}
	return degenerate
}
