package detector

import (
	"math"
	"math/rand"
	"sync"

	"github.com/autonomiq/opsengine/internal/logger"
)

const (
	featureCount    = 5
	treesPerModel   = 50
	defaultSubsample = 64
	// scoreCutoff marks a point anomalous for a single model. Points with
	// average path length well below the expected value score above it.
	scoreCutoff = 0.6
)

// featureVector derives the model input from a window: current value, mean,
// standard deviation, short-term trend and time-of-day phase.
func featureVector(w Window) [featureCount]float64 {
	values := w.Values
	current := w.Current()
	trend := 0.0
	if len(values) > 1 {
		trend = current - values[0]
	}
	phase := 0.0
	if !w.End.IsZero() {
		phase = (float64(w.End.Hour())*60 + float64(w.End.Minute())) / 1440
		phase += float64(w.End.Weekday()) // 0..6 day offset keeps weekdays apart
	}
	return [featureCount]float64{current, mean(values), stddev(values), trend, phase}
}

// isoNode is one node of an isolation tree.
type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int
}

type isoTree struct {
	root      *isoNode
	maxDepth  int
	subsample int
}

func buildTree(data [][featureCount]float64, features []int, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(data) <= 1 {
		return &isoNode{size: len(data)}
	}

	feature := features[rng.Intn(len(features))]
	lo, hi := data[0][feature], data[0][feature]
	for _, row := range data {
		if row[feature] < lo {
			lo = row[feature]
		}
		if row[feature] > hi {
			hi = row[feature]
		}
	}
	if hi == lo {
		return &isoNode{size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][featureCount]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(data)}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, features, depth+1, maxDepth, rng),
		right:   buildTree(right, features, depth+1, maxDepth, rng),
		size:    len(data),
	}
}

func (t *isoTree) pathLength(x [featureCount]float64) float64 {
	node := t.root
	depth := 0.0
	for node.left != nil {
		if x[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	// Unsplit leaves holding several points get the expected remaining depth.
	if node.size > 1 {
		depth += avgPathLength(node.size)
	}
	return depth
}

// avgPathLength is the expected path length of an unsuccessful BST search,
// the standard isolation-forest normalization term.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	f := float64(n)
	return 2*(math.Log(f-1)+0.5772156649) - 2*(f-1)/f
}

// isoModel is one independently seeded isolation-tree model.
type isoModel struct {
	trees       []isoTree
	seed        int64
	maxFeatures float64
	maxSamples  float64
	subsample   int
}

func (m *isoModel) fit(data [][featureCount]float64) {
	rng := rand.New(rand.NewSource(m.seed))

	subsample := m.subsample
	if m.maxSamples > 0 && m.maxSamples < 1 {
		subsample = int(float64(subsample) * m.maxSamples)
	}
	if subsample > len(data) {
		subsample = len(data)
	}
	if subsample < 2 {
		subsample = len(data)
	}

	featureN := featureCount
	if m.maxFeatures > 0 && m.maxFeatures < 1 {
		featureN = int(math.Ceil(float64(featureCount) * m.maxFeatures))
	}

	maxDepth := int(math.Ceil(math.Log2(float64(subsample)))) + 1
	m.trees = make([]isoTree, 0, treesPerModel)

	for i := 0; i < treesPerModel; i++ {
		sample := make([][featureCount]float64, subsample)
		for j := range sample {
			sample[j] = data[rng.Intn(len(data))]
		}
		features := rng.Perm(featureCount)[:featureN]
		tree := isoTree{maxDepth: maxDepth, subsample: subsample}
		tree.root = buildTree(sample, features, 0, maxDepth, rng)
		m.trees = append(m.trees, tree)
	}
}

// score returns the isolation anomaly score in (0, 1); higher is more
// isolated, values above scoreCutoff indicate an outlier.
func (m *isoModel) score(x [featureCount]float64) float64 {
	if len(m.trees) == 0 {
		return 0
	}
	var total float64
	for i := range m.trees {
		total += m.trees[i].pathLength(x)
	}
	avg := total / float64(len(m.trees))
	return math.Pow(2, -avg/avgPathLength(m.trees[0].subsample))
}

// Ensemble votes across k independently seeded isolation-tree models. A
// window is anomalous when a majority of members agree; the reported score
// is the mean per-model magnitude clamped to [0, 1].
type Ensemble struct {
	mu     sync.RWMutex
	models []*isoModel
	fitted bool
}

// NewEnsemble builds the ensemble with the fixed model seeds. Size below 1
// falls back to 3 members; extra members reuse staggered seeds.
func NewEnsemble(size int) *Ensemble {
	if size <= 0 {
		size = 3
	}
	e := &Ensemble{}
	base := []*isoModel{
		{seed: 42, subsample: defaultSubsample},
		{seed: 43, subsample: defaultSubsample, maxFeatures: 0.8},
		{seed: 44, subsample: defaultSubsample, maxSamples: 0.8},
	}
	for i := 0; i < size; i++ {
		if i < len(base) {
			e.models = append(e.models, base[i])
			continue
		}
		e.models = append(e.models, &isoModel{seed: int64(42 + i), subsample: defaultSubsample})
	}
	return e
}

// Fit trains every member on the given feature vectors.
func (e *Ensemble) Fit(vectors [][]float64) {
	if len(vectors) == 0 {
		return
	}
	data := make([][featureCount]float64, 0, len(vectors))
	for _, v := range vectors {
		var row [featureCount]float64
		copy(row[:], v)
		data = append(data, row)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range e.models {
		m.fit(data)
	}
	e.fitted = true
	logger.Infof("Anomaly ensemble trained on %d samples (%d models)", len(data), len(e.models))
}

// FitWindows trains the ensemble from historical windows of raw values.
func (e *Ensemble) FitWindows(windows []Window) {
	vectors := make([][]float64, 0, len(windows))
	for _, w := range windows {
		fv := featureVector(w)
		vectors = append(vectors, fv[:])
	}
	e.Fit(vectors)
}

func (e *Ensemble) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fitted
}

func (e *Ensemble) Detect(window Window) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.fitted {
		return Result{}, ErrModelUnavailable
	}
	if len(window.Values) < MinSamples {
		return Result{}, ErrInsufficientData
	}

	fv := featureVector(window)

	votes := 0
	var scoreSum float64
	for _, m := range e.models {
		s := m.score(fv)
		scoreSum += s
		if s > scoreCutoff {
			votes++
		}
	}

	result := Result{
		IsAnomaly: votes >= len(e.models)/2+1,
		Score:     clamp(scoreSum/float64(len(e.models)), 0, 1),
		Type:      ClassifyType(window.MetricName, window.Values),
	}
	result.Confidence = result.Score
	return result, nil
}
