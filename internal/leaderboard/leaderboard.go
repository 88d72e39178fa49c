package leaderboard

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// chave do sorted set com a pontuação acumulada por usuário
const scoresKey = "leaderboard:scores"

// Entry é uma posição do ranking
type Entry struct {
	UserID string
	Score  int64
}

// Store mantém o ranking em um sorted set Redis, alimentado pelos
// eventos guess_resolved consumidos pelo leaderboard-worker
type Store struct{ R *redis.Client }

func NewStore(r *redis.Client) *Store { return &Store{R: r} }

// Apply acumula o delta de uma resolução na pontuação do usuário
func (s *Store) Apply(ctx context.Context, userID string, delta int64) error {
	return s.R.ZIncrBy(ctx, scoresKey, float64(delta), userID).Err()
}

// Top retorna as n maiores pontuações, em ordem decrescente
func (s *Store) Top(ctx context.Context, n int) ([]Entry, error) {
	zs, err := s.R.ZRevRangeWithScores(ctx, scoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		userID, _ := z.Member.(string)
		out = append(out, Entry{UserID: userID, Score: int64(z.Score)})
	}
	return out, nil
}
