package stress

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const headerSize = 16

type Config struct {
	Buckets   int    `toml:"buckets"`
	Buffers   int    `toml:"buffers"`
	BlockSize int    `toml:"block_size"`
	Hasher    string `toml:"hasher"`

	Workers    int     `toml:"workers"`
	Ops        int     `toml:"ops"`
	Devices    uint32  `toml:"devices"`
	Blocks     uint32  `toml:"blocks"`
	WriteRatio float64 `toml:"write_ratio"`
	PinRatio   float64 `toml:"pin_ratio"`
	Seed       uint64  `toml:"seed"`

	Device *Device `toml:"device"`

	MetricsAddr string `toml:"metrics_addr"`
}

type Device struct {
	// ImageDir stores one image file per device, replacing images left by an earlier run.
	// Empty means an in-memory device.
	ImageDir  string  `toml:"image_dir"`
	OpsPerSec float64 `toml:"ops_per_sec"`
	Burst     int     `toml:"burst"`
}

func Default() Config {
	return Config{
		Buckets:    13,
		Buffers:    65,
		BlockSize:  1024,
		Hasher:     "packed",
		Workers:    8,
		Ops:        100_000,
		Devices:    2,
		Blocks:     200,
		WriteRatio: 0.3,
		PinRatio:   0.1,
		Seed:       1,
	}
}

func (c *Config) validate() error {
	if c.Workers <= 0 {
		return errors.New("workers should be positive")
	}

	if c.Workers > c.Buffers {
		return errors.New("more workers than buffers")
	}

	if c.Ops <= 0 {
		return errors.New("ops should be positive")
	}

	if c.Devices == 0 || c.Blocks == 0 {
		return errors.New("devices and blocks should be positive")
	}

	if c.BlockSize < headerSize {
		return fmt.Errorf("block size should be at least %d", headerSize)
	}

	if c.WriteRatio < 0 || c.WriteRatio > 1 || c.PinRatio < 0 || c.PinRatio > 1 {
		return errors.New("ratios should be in [0, 1]")
	}

	if _, err := hasherByName(c.Hasher); err != nil {
		return err
	}

	return c.Device.validate()
}

func (d *Device) validate() error {
	if d == nil {
		return nil
	}

	if d.OpsPerSec < 0 {
		return errors.New("ops_per_sec should not be negative")
	}

	if d.OpsPerSec > 0 && d.Burst <= 0 {
		return errors.New("throttled device needs a positive burst")
	}

	return nil
}

// Load reads a config file on top of Default.
func Load(configPath string) (Config, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := toml.Unmarshal(content, &c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}
