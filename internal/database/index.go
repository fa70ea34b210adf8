package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/embedding"
)

// Neighbor is one reference embedding close to a query.
type Neighbor struct {
	Index      int     // position in the reference set
	Similarity float64 // cosine similarity in [-1, 1]
}

// ReferenceIndex is an HNSW graph over the embeddings of a reference set.
type ReferenceIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[int]
	dim   int
}

func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// NewReferenceIndex indexes every embedding of set.
func NewReferenceIndex(set *ReferenceSet) (*ReferenceIndex, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	g := newGraph()
	for i, e := range set.Embeddings {
		g.Add(hnsw.MakeNode(i, e))
	}
	return &ReferenceIndex{graph: g, dim: set.Dim()}, nil
}

// Len returns the number of indexed embeddings.
func (x *ReferenceIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.graph == nil {
		return 0
	}
	return x.graph.Len()
}

// Search returns up to k neighbors ordered by decreasing similarity.
func (x *ReferenceIndex) Search(query []float32, k int) ([]Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Len() == 0 {
		return nil, errors.New("index not initialized")
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(query), x.dim)
	}

	nodes := x.graph.Search(query, k)
	out := make([]Neighbor, len(nodes))
	for i, n := range nodes {
		out[i] = Neighbor{Index: n.Key, Similarity: embedding.CosineSimilarity(query, n.Value)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// Best returns the nearest reference embedding.
func (x *ReferenceIndex) Best(query []float32) (Neighbor, error) {
	n, err := x.Search(query, 1)
	if err != nil {
		return Neighbor{}, err
	}
	if len(n) == 0 {
		return Neighbor{}, errors.New("no neighbor found")
	}
	return n[0], nil
}

// Save exports the graph to path.
func (x *ReferenceIndex) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return errors.New("index not initialized")
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	defer f.Close()

	if err := x.graph.Export(f); err != nil {
		return fmt.Errorf("exporting HNSW graph: %w", err)
	}
	return nil
}

// LoadReferenceIndex imports a graph saved with Save. The graph must belong to
// a reference set of the given size and dimension; otherwise it is stale.
func LoadReferenceIndex(path string, set *ReferenceSet) (*ReferenceIndex, error) {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open HNSW index: %w", err)
	}
	defer f.Close()

	g := newGraph()
	if err := g.Import(f); err != nil {
		return nil, fmt.Errorf("failed to load HNSW index: %w", err)
	}
	if g.Len() != len(set.Embeddings) || g.Dims() != set.Dim() {
		return nil, fmt.Errorf("stale HNSW index: %d nodes of dimension %d, references have %d of dimension %d",
			g.Len(), g.Dims(), len(set.Embeddings), set.Dim())
	}
	return &ReferenceIndex{graph: g, dim: set.Dim()}, nil
}

// LoadOrBuildIndex loads the saved graph at path when it matches set,
// otherwise builds a fresh one and saves it. An empty path disables persistence.
func LoadOrBuildIndex(path string, set *ReferenceSet) (*ReferenceIndex, error) {
	if path != "" {
		if idx, err := LoadReferenceIndex(path, set); err == nil {
			return idx, nil
		}
	}

	idx, err := NewReferenceIndex(set)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := idx.Save(path); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
