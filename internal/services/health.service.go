package services

import (
	"context"

	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"github.com/sekolahpay/canteen-ledger/pkg/redis"
)

// HealthService reports whether the dependencies the API needs are reachable.
type HealthService struct {
	db    *pg.DB
	redis redis.RedisAdapter
}

func NewHealthService(db *pg.DB, redisAdapter redis.RedisAdapter) *HealthService {
	return &HealthService{
		db:    db,
		redis: redisAdapter,
	}
}

func (s *HealthService) Get() error {
	ctx := context.Background()

	if s.db != nil {
		sqlDB, err := s.db.Read(ctx).DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}

	if s.redis != nil {
		if cmd := s.redis.Client().Ping(ctx); cmd.Err() != nil {
			return cmd.Err()
		}
	}

	return nil
}
