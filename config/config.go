// Package config loads manager and framer tuning from a YAML file, so that
// deployments can adjust pool sizing and framer defaults without
// recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studoret/upipe/mp2v"
	"github.com/studoret/upipe/pipe"
	"github.com/studoret/upipe/ubuf"
	"github.com/studoret/upipe/udict"
)

// DictManager tunes the attribute dictionary manager.
type DictManager struct {
	MinSize   int `yaml:"min_size"`
	ExtraSize int `yaml:"extra_size"`
	PoolDepth int `yaml:"pool_depth"`
}

// BlockManager tunes the block buffer descriptor manager.
type BlockManager struct {
	PoolDepth int `yaml:"pool_depth"`
}

// Framer tunes the MPEG-2 video framer defaults.
type Framer struct {
	InsertSequence bool `yaml:"insert_sequence"`
}

// Config is the root configuration document.
type Config struct {
	Dict   DictManager  `yaml:"dict"`
	Block  BlockManager `yaml:"block"`
	Framer Framer       `yaml:"framer"`
}

// Default returns the tuning used when no configuration file is given.
func Default() Config {
	return Config{
		Dict:  DictManager{MinSize: 128, ExtraSize: 64, PoolDepth: 8},
		Block: BlockManager{PoolDepth: 8},
	}
}

// Parse decodes a YAML document over the defaults, so that omitted keys
// keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Dict.MinSize < 1 || cfg.Dict.ExtraSize < 1 {
		return Config{}, fmt.Errorf("config: dict min_size and extra_size must be positive")
	}
	if cfg.Dict.PoolDepth < 0 || cfg.Block.PoolDepth < 0 {
		return Config{}, fmt.Errorf("config: pool_depth must not be negative")
	}
	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// NewDictManager constructs a dictionary manager with this tuning.
func (c Config) NewDictManager() *udict.Manager {
	return udict.NewManager(c.Dict.MinSize, c.Dict.ExtraSize, c.Dict.PoolDepth)
}

// NewBlockManager constructs a block descriptor manager with this tuning.
func (c Config) NewBlockManager() *ubuf.Manager {
	return ubuf.NewManager(c.Block.PoolDepth)
}

// NewFramer constructs an MPEG-2 framer with this tuning applied, backed
// by managers built from the dict and block sections.
func (c Config) NewFramer(probes ...pipe.Probe) (*mp2v.Framer, error) {
	f := mp2v.NewFramer(c.NewDictManager(), c.NewBlockManager(), probes...)
	if err := f.Control(mp2v.SetSequenceInsertion{Insert: c.Framer.InsertSequence}); err != nil {
		f.Release()
		return nil, fmt.Errorf("config: apply framer tuning: %w", err)
	}
	return f, nil
}
