package bus

import (
	"strings"

	"github.com/tattva/tattva/internal/config"
	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// NewBus builds the bus selected by cfg.Type. An empty type means memory.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch kind {
	case "", "memory":
		return NewMemoryBus(log), nil
	case "kafka":
		kc, err := kafkaConfigFrom(cfg)
		if err != nil {
			return nil, err
		}
		return NewKafkaBus(kc, log)
	}
	return nil, errors.New(errors.CodeValidation, "unknown bus type: "+cfg.Type).
		WithDetail("supported", "memory, kafka")
}

// Open builds the configured bus and instruments it with rec.
func Open(cfg config.BusConfig, rec MetricsRecorder, log *logger.Logger) (*InstrumentedBus, error) {
	inner, err := NewBus(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewInstrumentedBus(inner, rec), nil
}

func kafkaConfigFrom(cfg config.BusConfig) (KafkaConfig, error) {
	brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return KafkaConfig{}, errors.New(errors.CodeValidation, "kafka bus needs at least one broker")
	}
	kc := KafkaConfig{
		Brokers:       brokers,
		ConsumerGroup: cfg.KafkaGroup,
		ClientID:      cfg.KafkaClientID,
		Version:       cfg.KafkaVersion,
	}
	if kc.ConsumerGroup == "" {
		kc.ConsumerGroup = "tattva"
	}
	return kc, nil
}
