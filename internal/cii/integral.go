package cii

import "image"

// sumTable is a summed-area table padded with a zero first row and column:
// s[(i+1)*stride+(j+1)] holds the sum of weight(img) over rows ≤ i, cols ≤ j.
type sumTable struct {
	s      []float64
	stride int
}

func newSumTable(width, height int) *sumTable {
	return &sumTable{
		s:      make([]float64, (width+1)*(height+1)),
		stride: width + 1,
	}
}

// build fills the table with the cumulative sum of lut[img] in one forward
// sweep: a running sum along each row plus the row above.
func (t *sumTable) build(img *Gray, lut *[RangeLevels]float64) {
	w := img.Width
	for i := 0; i < img.Height; i++ {
		src := img.Pix[i*w : (i+1)*w]
		prev := t.s[i*t.stride : (i+1)*t.stride]
		cur := t.s[(i+1)*t.stride : (i+2)*t.stride]
		var row float64
		for j, v := range src {
			row += lut[v]
			cur[j+1] = prev[j+1] + row
		}
	}
}

// window returns the sum over the (2r+1)×(2r+1) square centered on (i,j).
// The window must lie inside the image.
func (t *sumTable) window(i, j, r int) float64 {
	top := (i - r) * t.stride
	bottom := (i + r + 1) * t.stride
	left := j - r
	right := j + r + 1
	return t.s[bottom+right] - t.s[bottom+left] - t.s[top+right] + t.s[top+left]
}

// windowPass is one harmonic term: the per-pixel weight summed over each
// window, and the per-center phase multiplying that sum. A nil phase stands
// for 1.
type windowPass struct {
	weight *[RangeLevels]float64
	phase  *[RangeLevels]float64
}

// addWindowed builds t from p.weight and adds phase[center]·windowSum into
// dst for every pixel of valid.
func (t *sumTable) addWindowed(dst []float64, img *Gray, r int, valid image.Rectangle, p windowPass) {
	t.build(img, p.weight)
	w := img.Width
	for i := valid.Min.Y; i < valid.Max.Y; i++ {
		row := i * w
		for j := valid.Min.X; j < valid.Max.X; j++ {
			sum := t.window(i, j, r)
			if p.phase != nil {
				sum *= p.phase[img.Pix[row+j]]
			}
			dst[row+j] += sum
		}
	}
}

// lutOf materializes a per-intensity weight function.
func lutOf(f func(v int) float64) *[RangeLevels]float64 {
	var lut [RangeLevels]float64
	for v := range lut {
		lut[v] = f(v)
	}
	return &lut
}
