package core

import (
	"context"
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/metrics"
)

type memSource struct {
	g   *cii.Gray
	err error
}

func (s *memSource) Load(ctx context.Context) (*cii.Gray, error) {
	return s.g, s.err
}

type memSink struct {
	got *cii.Gray
}

func (s *memSink) Save(ctx context.Context, g *cii.Gray) error {
	s.got = g
	return nil
}

type memStore struct {
	files map[string]*cii.Gray
}

func (m *memStore) Load(path string) (*cii.Gray, error) {
	g, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return g, nil
}

func (m *memStore) Save(path string, g *cii.Gray) error {
	m.files[path] = g
	return nil
}

func flat(w, h int, v uint8) *cii.Gray {
	g := cii.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func noise(w, h int, seed int64) *cii.Gray {
	rng := rand.New(rand.NewSource(seed))
	g := cii.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = uint8(rng.Intn(256))
	}
	return g
}

func job(r int, std float64) Job {
	return Job{Params: cii.Params{RangeStd: std, Radius: r}, Passes: 1}
}

func TestRunFlatImage(t *testing.T) {
	p := NewPipeline(Backend{Name: "test"}, nil)
	sink := &memSink{}

	report, err := p.Run(context.Background(), job(2, 0.1), &memSource{g: flat(12, 10, 90)}, sink)
	require.NoError(t, err)
	require.NotNil(t, sink.got)

	assert.Equal(t, flat(12, 10, 90).Pix, sink.got.Pix)
	assert.Equal(t, image.Rect(2, 2, 10, 8), report.Valid)
	assert.Equal(t, cii.HarmonicCount(0.1), report.Coefficients)
	assert.Equal(t, "none", report.Quality.Smoothing)
	assert.Zero(t, report.DegeneratePixels)
	assert.Nil(t, report.Reference)
	for _, stage := range []string{"load", "filter", "evaluate", "save"} {
		assert.Contains(t, report.Durations, stage)
	}
}

func TestMarginPolicies(t *testing.T) {
	src := flat(9, 7, 40)
	p := NewPipeline(Backend{Name: "test"}, nil)

	tests := []struct {
		margin Margin
		width  int
		height int
		corner uint8
	}{
		{MarginSource, 9, 7, 40},
		{MarginZero, 9, 7, 0},
		{MarginCrop, 5, 3, 40},
	}

	for _, tt := range tests {
		t.Run(tt.margin.String(), func(t *testing.T) {
			j := job(2, 0.2)
			j.Margin = tt.margin
			out, _, err := p.Process(context.Background(), j, src)
			require.NoError(t, err)
			assert.Equal(t, tt.width, out.Width)
			assert.Equal(t, tt.height, out.Height)
			assert.Equal(t, tt.corner, out.At(0, 0))
			assert.Equal(t, uint8(40), out.At(out.Height/2, out.Width/2))
		})
	}
}

func TestParseMargin(t *testing.T) {
	for _, m := range []Margin{MarginSource, MarginZero, MarginCrop} {
		got, err := ParseMargin(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMargin("mirror")
	assert.Error(t, err)
	assert.Equal(t, "Margin(7)", Margin(7).String())
}

func TestMorePassesSmoothMore(t *testing.T) {
	src := noise(24, 24, 3)
	p := NewPipeline(Backend{Name: "test"}, nil)

	var ratios []float64
	for _, passes := range []int{1, 2, 3} {
		j := job(1, 1)
		j.Passes = passes
		_, report, err := p.Process(context.Background(), j, src)
		require.NoError(t, err)
		assert.Equal(t, passes, report.Passes)
		ratios = append(ratios, report.Quality.Metrics["contrast_ratio"])
	}

	assert.Less(t, ratios[0], 1.0)
	assert.Less(t, ratios[1], ratios[0])
	assert.Less(t, ratios[2], ratios[1])
}

func TestReferenceComparison(t *testing.T) {
	src := noise(20, 16, 11)
	p := NewPipeline(Backend{Name: "test"}, nil)

	j := job(2, 0.1)
	j.ReferenceName = "exact"
	j.Reference = func(ctx context.Context, g *cii.Gray) (*cii.Gray, error) {
		out, err := cii.ExactBoxBilateral(g, 0.1, 2)
		if err != nil {
			return nil, err
		}
		return cii.Merge(g, out, image.Rect(2, 2, g.Width-2, g.Height-2), cii.RangeLevels), nil
	}

	_, report, err := p.Process(context.Background(), j, src)
	require.NoError(t, err)
	require.NotNil(t, report.Reference)
	assert.Greater(t, report.Reference["psnr"], 35.0)
	assert.LessOrEqual(t, report.Reference["max_abs_diff"], 3.0)
	assert.Contains(t, report.Durations, "reference")
}

func TestReferenceError(t *testing.T) {
	p := NewPipeline(Backend{Name: "test"}, nil)
	boom := errors.New("boom")

	j := job(1, 0.5)
	j.Reference = func(ctx context.Context, g *cii.Gray) (*cii.Gray, error) {
		return nil, boom
	}

	_, _, err := p.Process(context.Background(), j, flat(5, 5, 1))
	assert.ErrorIs(t, err, boom)
}

func TestBackendKernelOverride(t *testing.T) {
	called := 0
	backend := Backend{
		Name: "dc",
		Kernel: func(std float64) (cii.Kernel, error) {
			called++
			return cii.Kernel{Std: std, Coefficients: []float64{1}}, nil
		},
	}

	src := cii.NewGray(5, 5)
	src.Set(2, 2, 255)

	out, report, err := NewPipeline(backend, nil).Process(context.Background(), job(1, 0.1), src)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, 1, report.Coefficients)
	assert.Equal(t, uint8(28), out.At(1, 1))
	assert.Equal(t, uint8(28), out.At(3, 3))
}

func TestCustomConverter(t *testing.T) {
	backend := Backend{
		Name: "half",
		Convert: func(out *cii.Float32, valid image.Rectangle, scale float64) *cii.Gray {
			return out.ToGray(valid, scale/2)
		},
	}

	out, _, err := NewPipeline(backend, nil).Process(context.Background(), job(1, 0.2), flat(6, 6, 100))
	require.NoError(t, err)
	assert.Equal(t, uint8(50), out.At(2, 2))
	assert.Equal(t, uint8(100), out.At(0, 0))
}

func TestRunErrors(t *testing.T) {
	p := NewPipeline(Backend{Name: "test"}, nil)
	ctx := context.Background()
	loadErr := errors.New("unreadable")

	_, err := p.Run(ctx, job(1, 0.1), &memSource{err: loadErr}, &memSink{})
	assert.ErrorIs(t, err, loadErr)

	bad := job(1, 0.1)
	bad.Passes = 0
	_, err = p.Run(ctx, bad, &memSource{g: flat(5, 5, 1)}, &memSink{})
	assert.ErrorIs(t, err, ErrInvalidJob)

	bad = job(1, 0.1)
	bad.Margin = Margin(9)
	_, _, err = p.Process(ctx, bad, flat(5, 5, 1))
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = p.Run(ctx, job(3, 0.1), &memSource{g: flat(5, 5, 1)}, &memSink{})
	assert.ErrorIs(t, err, cii.ErrInvalidRadius)

	_, err = p.Run(ctx, job(math.MaxInt/2, 0.1), &memSource{g: flat(5, 5, 1)}, &memSink{})
	assert.ErrorIs(t, err, cii.ErrInvalidRadius)

	_, err = p.Run(ctx, job(1, 0), &memSource{g: flat(5, 5, 1)}, &memSink{})
	assert.ErrorIs(t, err, cii.ErrInvalidRangeStd)

	_, _, err = p.Process(ctx, job(1, 0.1), cii.NewGray(0, 0))
	assert.ErrorIs(t, err, cii.ErrEmptyImage)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &memStore{files: map[string]*cii.Gray{"in.png": flat(8, 8, 5)}}
	p := NewPipeline(Backend{Name: "test"}, nil)

	_, err := p.Run(ctx, job(1, 0.1), FileSource("in.png", store), FileSink("out.png", store))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, store.files, "out.png")
}

func TestFileSourceAndSink(t *testing.T) {
	store := &memStore{files: map[string]*cii.Gray{"in.png": noise(10, 10, 5)}}
	p := NewPipeline(Backend{Name: "mem", Loader: store, Saver: store}, nil)

	j := job(1, 0.1)
	j.Margin = MarginCrop
	report, err := p.Run(context.Background(), j, FileSource("in.png", store), FileSink("out.png", store))
	require.NoError(t, err)

	out := store.files["out.png"]
	require.NotNil(t, out)
	assert.Equal(t, 8, out.Width)
	assert.Equal(t, 10, report.Width)

	_, err = FileSource("missing.png", store).Load(context.Background())
	assert.ErrorContains(t, err, "missing.png")
	assert.Equal(t, "in.png", FileSource("in.png", store).(interface{ String() string }).String())
}

func TestEvaluatorMatchesReport(t *testing.T) {
	src := noise(16, 16, 8)
	p := NewPipeline(Backend{Name: "test"}, nil)

	out, report, err := p.Process(context.Background(), job(2, 0.3), src)
	require.NoError(t, err)

	want, err := metrics.NewEvaluator().Calculate("mse", src, out, report.Valid)
	require.NoError(t, err)
	assert.InDelta(t, want, report.Quality.Metrics["mse"], 1e-9)
}

type constMetric struct{ metrics.MSE }

func (constMetric) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	return 42, nil
}

func TestBackendEvaluator(t *testing.T) {
	e := metrics.NewEvaluator()
	e.Register("mse", &constMetric{})
	e.Register("constant", &constMetric{})

	j := job(1, 0.2)
	j.Reference = func(ctx context.Context, g *cii.Gray) (*cii.Gray, error) { return g, nil }

	_, report, err := NewPipeline(Backend{Name: "custom", Evaluator: e}, nil).Process(context.Background(), j, noise(8, 8, 2))
	require.NoError(t, err)
	assert.Equal(t, 42.0, report.Quality.Metrics["mse"])
	assert.Equal(t, 42.0, report.Quality.Metrics["constant"])
	assert.Equal(t, 42.0, report.Reference["constant"])
}
