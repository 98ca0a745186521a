package rank

import (
	"context"

	"github.com/juju/errors"

	"github.com/rushteam/eventrec/core"
)

// NeighborScorer 是轻量协同过滤（CF-lite）：
// 找到与用户同样喜欢（评分 >= LikedRating）过某些事件的其他用户（邻居），
// 统计每个候选被多少邻居喜欢，再按候选集 min-max 归一化。
type NeighborScorer struct {
	Repo        core.Repository
	LikedRating int
}

// Scores 返回与 candidateIDs 对齐的分数。没有邻居时全部为 0。
func (s *NeighborScorer) Scores(ctx context.Context, userID string, candidateIDs []string) ([]float64, error) {
	raw := make([]float64, len(candidateIDs))
	if s.Repo == nil || userID == "" || len(candidateIDs) == 0 {
		return raw, nil
	}
	liked := s.LikedRating
	if liked <= 0 {
		liked = core.LikedRating
	}
	rated, err := s.Repo.FindRatedEventIDs(ctx, userID, liked)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if rated.Cardinality() == 0 {
		return raw, nil
	}
	counts, err := s.Repo.FindNeighborRatings(ctx, rated.ToSlice(), userID, liked)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for i, id := range candidateIDs {
		raw[i] = float64(counts[id])
	}
	return MinMax(raw), nil
}
