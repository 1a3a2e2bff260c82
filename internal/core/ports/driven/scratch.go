package driven

import "context"

type scratchDirKey struct{}

// WithScratchDir returns a context that tells decoders where to write
// temporary files while probing.
func WithScratchDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, scratchDirKey{}, dir)
}

// ScratchDir returns the directory set by WithScratchDir.
func ScratchDir(ctx context.Context) (string, bool) {
	dir, ok := ctx.Value(scratchDirKey{}).(string)
	return dir, ok && dir != ""
}
