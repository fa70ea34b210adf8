package trainer

import (
	"math"

	"github.com/kozaktomas/facewatch/internal/embedding"
)

// Quality grades how consistent the training photos are.
type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityAcceptable Quality = "acceptable"
	QualityPoor       Quality = "poor"
)

// Statistics summarizes pairwise cosine similarity between training embeddings.
type Statistics struct {
	MeanSimilarity float64 `json:"mean_similarity"`
	StdSimilarity  float64 `json:"std_similarity"`
	MinSimilarity  float64 `json:"min_similarity"`
	MaxSimilarity  float64 `json:"max_similarity"`
	Dimension      int     `json:"embedding_dimension"`
	Count          int     `json:"num_embeddings"`
}

// ComputeStatistics compares every pair of embeddings. With fewer than two
// embeddings the similarity figures are zero.
func ComputeStatistics(embeddings [][]float32) Statistics {
	stats := Statistics{Count: len(embeddings)}
	if len(embeddings) == 0 {
		return stats
	}
	stats.Dimension = len(embeddings[0])

	var sims []float64
	for i := range embeddings {
		for j := i + 1; j < len(embeddings); j++ {
			sims = append(sims, embedding.CosineSimilarity(embeddings[i], embeddings[j]))
		}
	}
	if len(sims) == 0 {
		return stats
	}

	stats.MinSimilarity = math.Inf(1)
	stats.MaxSimilarity = math.Inf(-1)
	var sum float64
	for _, s := range sims {
		sum += s
		stats.MinSimilarity = min(stats.MinSimilarity, s)
		stats.MaxSimilarity = max(stats.MaxSimilarity, s)
	}
	stats.MeanSimilarity = sum / float64(len(sims))

	var variance float64
	for _, s := range sims {
		d := s - stats.MeanSimilarity
		variance += d * d
	}
	stats.StdSimilarity = math.Sqrt(variance / float64(len(sims)))
	return stats
}

// Quality grades the mean similarity: above 0.8 is excellent, above 0.6 acceptable.
func (s Statistics) Quality() Quality {
	switch {
	case s.MeanSimilarity > 0.8:
		return QualityExcellent
	case s.MeanSimilarity > 0.6:
		return QualityAcceptable
	default:
		return QualityPoor
	}
}
