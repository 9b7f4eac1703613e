package eventbus

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/darkden-lab/tableside/internal/config"
	logx "github.com/darkden-lab/tableside/internal/log"
)

// Driver names accepted in EVENT_BUS_DRIVER.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverKafka  = "kafka"
)

// New creates a Bus based on the application configuration. redisClient is
// required only by the redis driver.
func New(cfg *config.Config, redisClient *redis.Client) (Bus, error) {
	logger := logx.WithComponent("eventbus")

	switch cfg.EventBusDriver {
	case "", DriverMemory:
		logger.Info().Msg("using in-memory event bus")
		return NewInMemoryBus(), nil
	case DriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("event bus driver %q requires REDIS_ADDR", DriverRedis)
		}
		logger.Info().Str("prefix", cfg.EventBusChannelPrefix).Msg("using redis event bus")
		return NewRedisBus(redisClient, cfg.EventBusChannelPrefix)
	case DriverKafka:
		brokers := cfg.KafkaBrokerList()
		logger.Info().Strs("brokers", brokers).Msg("using kafka event bus")
		return NewKafkaBus(KafkaConfig{
			Brokers:     brokers,
			TopicPrefix: cfg.EventBusChannelPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown event bus driver %q", cfg.EventBusDriver)
	}
}
