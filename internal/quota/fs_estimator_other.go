//go:build !(linux || darwin || freebsd)

package quota

import (
	"context"
	"errors"
)

// FilesystemEstimator reports usage of the filesystem holding Dir.
type FilesystemEstimator struct {
	Dir string
}

func (f FilesystemEstimator) Usage(ctx context.Context) (int64, int64, error) {
	return 0, 0, errors.New("filesystem estimate is not supported on this platform")
}
