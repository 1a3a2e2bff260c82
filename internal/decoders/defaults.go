package decoders

import (
	"github.com/custodia-labs/embedscan/internal/decoders/media"
	"github.com/custodia-labs/embedscan/internal/decoders/placeholder"
	"github.com/custodia-labs/embedscan/internal/decoders/raster"
)

// Config holds the settings of the built-in decoders.
type Config struct {
	// ChunkSize is the chunk size of the proxy raster decoding reads through.
	ChunkSize int

	// FFmpegBinary is the transcoder executable.
	FFmpegBinary string

	// ScratchDir receives transcoded outputs.
	ScratchDir string
}

// RegisterDefaults registers all built-in decoders with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry, cfg Config) {
	var rasterOpts []raster.Option
	if cfg.ChunkSize > 0 {
		rasterOpts = append(rasterOpts, raster.WithChunkSize(cfg.ChunkSize))
	}
	r.Register(raster.New(rasterOpts...))

	var mediaOpts []media.Option
	if cfg.FFmpegBinary != "" {
		mediaOpts = append(mediaOpts, media.WithBinary(cfg.FFmpegBinary))
	}
	if cfg.ScratchDir != "" {
		mediaOpts = append(mediaOpts, media.WithScratchDir(cfg.ScratchDir))
	}
	r.Register(media.New(mediaOpts...))

	for _, d := range placeholder.All() {
		r.Register(d)
	}
}
