package hierbuild

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/mosaix-eda/mosaix/layout"
)

var (
	// ErrBadVertexCount indicates a pipeline config with a vertex bound too
	// small to make splitting progress.
	ErrBadVertexCount = errors.New("hierbuild: max_vertex_count must be at least 4")

	// ErrBadAreaRatio indicates a pipeline config with an area ratio below 1;
	// no polygon can satisfy such a bound.
	ErrBadAreaRatio = errors.New("hierbuild: area_ratio must be at least 1")
)

// PipelineConfig holds the tunables of the standard receiver pipeline.
type PipelineConfig struct {
	// MaxVertexCount bounds polygon complexity past the reducing stage.
	MaxVertexCount int `toml:"max_vertex_count"`
	// AreaRatio bounds bbox-area/polygon-area past the reducing stage.
	AreaRatio float64 `toml:"area_ratio"`
	// Clip enables the clipping stage in front of the chain.
	Clip bool `toml:"clip"`
}

// DefaultPipelineConfig returns the standard tuning: polygons reduced to at
// most 16 vertices and an area ratio of 3, clipping enabled.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{MaxVertexCount: 16, AreaRatio: 3.0, Clip: true}
}

// LoadPipelineConfig reads a TOML pipeline configuration. Missing keys keep
// their defaults; invalid values are rejected with sentinel errors.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("hierbuild: reading pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

// Validate checks the bounds of the configuration.
func (c PipelineConfig) Validate() error {
	if c.MaxVertexCount < 4 {
		return ErrBadVertexCount
	}
	if c.AreaRatio < 1 {
		return ErrBadAreaRatio
	}
	return nil
}

// NewPipeline builds the standard receiver chain for target according to
// the configuration: [clip →] reduce → intern-as-polygon-ref.
func (c PipelineConfig) NewPipeline(target *layout.Layout) ShapeReceiver {
	var pipe ShapeReceiver = NewPolygonRefReceiver(target)
	pipe = NewReducingReceiver(pipe, c.AreaRatio, c.MaxVertexCount)
	if c.Clip {
		pipe = NewClippingReceiver(pipe)
	}
	return pipe
}
