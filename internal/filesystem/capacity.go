//go:build !windows

package filesystem

import "golang.org/x/sys/unix"

// Capacity is the size of the volume holding a path.
type Capacity struct {
	Total uint64 `json:"totalSpace"`
	Free  uint64 `json:"freeSpace"`
	Used  uint64 `json:"usedSpace"`
}

// VolumeCapacity reports the capacity of the filesystem containing path.
// Free is what an unprivileged writer can still use.
func VolumeCapacity(path string) (Capacity, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Capacity{}, err
	}
	bsize := uint64(st.Bsize)
	c := Capacity{
		Total: uint64(st.Blocks) * bsize,
		Free:  uint64(st.Bavail) * bsize,
	}
	if used := uint64(st.Blocks-st.Bfree) * bsize; used <= c.Total {
		c.Used = used
	}
	return c, nil
}
