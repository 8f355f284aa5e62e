// Box bilateral filtering with cosine integral images
package cii

// The range kernel, a Gaussian over intensity differences, is replaced by a
// short cosine series. Each cosine term cos(a-b) splits into
// cos(a)cos(b)+sin(a)sin(b), so the weighted window sum for every pixel
// becomes a handful of plain window sums, each read in O(1) from a
// summed-area table. The cost is O(nc·H·W) for nc = ceil(1/rangeStd)
// coefficients, independent of the window radius.
//
// The spatial kernel is a flat (2r+1)×(2r+1) box. Output is only defined for
// pixels whose whole window lies inside the image; see Params.ValidRegion.
//
// Reference: E. Elboher, M. Werman, "Cosine integral images for fast spatial
// and range filtering", ICIP 2011.
