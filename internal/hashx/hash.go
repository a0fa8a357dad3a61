// Package hashx computes content fingerprints used for server-side
// deduplication.
package hashx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// Hasher produces a hex-encoded fingerprint for a local file.
type Hasher interface {
	Hash(ctx context.Context, path string) string
}

// SHA256Hasher streams the file through sha256 so large images are not
// buffered in memory. A file that cannot be read yields a random
// fingerprint instead of an error: the item then proceeds as
// definitely-not-a-duplicate rather than blocking the user. The condition
// is logged as a warning because it silently disables dedup for that file.
type SHA256Hasher struct {
	log logging.Logger
}

func NewSHA256Hasher(log logging.Logger) *SHA256Hasher {
	return &SHA256Hasher{log: log}
}

func (h *SHA256Hasher) Hash(ctx context.Context, path string) string {
	f, err := os.Open(path)
	if err != nil {
		return h.randomFingerprint(ctx, path, err)
	}
	defer f.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return h.randomFingerprint(ctx, path, err)
	}

	return hex.EncodeToString(sum.Sum(nil))
}

func (h *SHA256Hasher) randomFingerprint(ctx context.Context, path string, cause error) string {
	h.log.Warn(ctx, "hashing failed, deduplication disabled for this file",
		"path", path, "error", cause)

	s, err := common.MakeRandHexString(sha256.Size)
	if err != nil {
		// crypto/rand failing means the platform RNG is broken; there is
		// no weaker fallback worth inventing here.
		panic(fmt.Sprintf("random fingerprint: %v", err))
	}
	return s
}
