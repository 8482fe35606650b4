package pulsewatch

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default sizes for the bridge's bounded channels.
const (
	DefaultNotifyCapacity = 1024
	DefaultBufferSize     = 1024
	DefaultClientName     = "pulsewatch"
)

// validate is the shared validator instance.
var validate = validator.New()

// Config holds the settings a Bridge and its provider are built from. It is
// usually loaded from a file with LoadConfig.
type Config struct {
	// Server is the provider-specific server address. Empty selects the
	// provider's default.
	Server string `yaml:"server" json:"server"`

	// ClientName is announced to the server on connect.
	ClientName string `yaml:"client_name" json:"client_name" validate:"required"`

	// Mask selects the kinds to subscribe to.
	Mask SubscriptionMask `yaml:"mask" json:"mask"`

	// ListCapacity bounds each list stream.
	ListCapacity int `yaml:"list_capacity" json:"list_capacity" validate:"min=64,max=1024"`

	// NotifyCapacity bounds the raw notification queue.
	NotifyCapacity int `yaml:"notify_capacity" json:"notify_capacity" validate:"min=1"`

	// BufferSize bounds the output channel.
	BufferSize int `yaml:"buffer_size" json:"buffer_size" validate:"min=1"`

	// StartupTimeout limits connecting and subscribing. Zero waits forever.
	StartupTimeout time.Duration `yaml:"startup_timeout" json:"startup_timeout" validate:"gte=0"`

	// ErrorHistorySize is the number of recent errors retained.
	ErrorHistorySize int `yaml:"error_history_size" json:"error_history_size" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ClientName:     DefaultClientName,
		Mask:           MaskAll,
		ListCapacity:   DefaultListCapacity,
		NotifyCapacity: DefaultNotifyCapacity,
		BufferSize:     DefaultBufferSize,
	}
}

// Validate checks field ranges and the subscription mask.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Mask&^MaskAll != 0 {
		return fmt.Errorf("mask %#x has unknown bits", uint32(c.Mask))
	}
	return nil
}

// LoadConfig decodes data over DefaultConfig and validates the result.
func LoadConfig(data []byte, codec Codec) (Config, error) {
	cfg := DefaultConfig()
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}
