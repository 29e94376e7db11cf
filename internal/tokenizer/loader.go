package tokenizer

import (
	"context"
	"path/filepath"

	"github.com/fractalmind-ai/tokenizerd/internal/hub"
)

// NewHubLoader builds the LoadFunc used in production. Local directory
// sources are read straight from disk; remote repository names go through
// the hub client's on-disk artifact cache, which enforces localOnly by
// refusing to download.
func NewHubLoader(client *hub.Client) LoadFunc {
	return func(ctx context.Context, source Source, localOnly bool) (Encoder, error) {
		if source.Local {
			return NewEncoderFromFile(filepath.Join(source.Value, ArtifactFileName))
		}
		artifactPath, err := client.Fetch(ctx, source.Value, ArtifactFileName, localOnly)
		if err != nil {
			return nil, err
		}
		return NewEncoderFromFile(artifactPath)
	}
}
