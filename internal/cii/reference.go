package cii

import (
	"image"
	"math"
)

// ExactBoxBilateral evaluates the box bilateral filter directly, visiting
// every neighbor with the true Gaussian range weight. It costs O(r²) per
// pixel and serves as ground truth for the cosine approximation. Output uses
// the same intensity/256 scale and valid region as Filter.
func ExactBoxBilateral(img *Gray, rangeStd float64, radius int) (*Float32, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	p := Params{RangeStd: rangeStd, Radius: radius}
	if err := p.Validate(img.Width, img.Height); err != nil {
		return nil, err
	}

	sigma := rangeStd * (RangeLevels - 1)
	var weight [2*RangeLevels - 1]float64
	for d := range weight {
		x := float64(d-(RangeLevels-1)) / sigma
		weight[d] = math.Exp(-0.5 * x * x)
	}

	out := NewFloat32(img.Width, img.Height)
	valid := p.ValidRegion(img.Width, img.Height)
	for i := valid.Min.Y; i < valid.Max.Y; i++ {
		for j := valid.Min.X; j < valid.Max.X; j++ {
			c := int(img.At(i, j))
			var num, den float64
			for y := i - radius; y <= i+radius; y++ {
				row := img.Pix[y*img.Width : (y+1)*img.Width]
				for _, v := range row[j-radius : j+radius+1] {
					w := weight[int(v)-c+RangeLevels-1]
					num += w * float64(v)
					den += w
				}
			}
			out.Set(i, j, float32(num/(den*RangeLevels)))
		}
	}
	return out, nil
}

// Merge rescales out by scale inside valid and copies src everywhere else,
// giving a full-size 8-bit image without an undefined margin.
func Merge(src *Gray, out *Float32, valid image.Rectangle, scale float64) *Gray {
	merged := out.ToGray(valid, scale)
	valid = valid.Intersect(src.Bounds())
	for i := 0; i < src.Height; i++ {
		for j := 0; j < src.Width; j++ {
			if !image.Pt(j, i).In(valid) {
				merged.Set(i, j, src.At(i, j))
			}
		}
	}
	return merged
}
