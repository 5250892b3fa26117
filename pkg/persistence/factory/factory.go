package factory

import (
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/badger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/redis"
	"go.uber.org/zap"
)

// StoreConfig selects and configures a state store backend.
type StoreConfig struct {
	Type       persistence.Type
	BadgerPath string
	Redis      *redis.RedisConfig
}

// NewStateStore opens the backend named by cfg.Type.
func NewStateStore(cfg *StoreConfig, logger *zap.Logger) (persistence.IStateStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store config cannot be nil")
	}

	switch cfg.Type {
	case persistence.TypeMemory, "":
		return memory.NewMemoryStateStore(), nil
	case persistence.TypeBadger:
		if cfg.BadgerPath == "" {
			return nil, fmt.Errorf("badger persistence requires a data path")
		}
		return badger.NewBadgerStateStore(cfg.BadgerPath, logger)
	case persistence.TypeRedis:
		return redis.NewRedisStateStore(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unsupported persistence type %q (supported: %v)", cfg.Type, persistence.SupportedTypes())
	}
}
