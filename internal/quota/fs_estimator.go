//go:build linux || darwin || freebsd

package quota

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// FilesystemEstimator reports usage of the filesystem holding Dir.
type FilesystemEstimator struct {
	Dir string
}

func (f FilesystemEstimator) Usage(ctx context.Context) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(f.Dir, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", f.Dir, err)
	}
	bsize := int64(st.Bsize)
	capacity := int64(st.Blocks) * bsize
	used := capacity - int64(st.Bavail)*bsize
	return used, capacity, nil
}
