//go:build unix

package internal

import "golang.org/x/sys/unix"

// availableBytes reports the free space usable by unprivileged writes on
// the filesystem containing path.
func availableBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
