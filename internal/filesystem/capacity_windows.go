package filesystem

import "errors"

// Capacity is the size of the volume holding a path.
type Capacity struct {
	Total uint64 `json:"totalSpace"`
	Free  uint64 `json:"freeSpace"`
	Used  uint64 `json:"usedSpace"`
}

// VolumeCapacity is not implemented on Windows.
func VolumeCapacity(string) (Capacity, error) {
	return Capacity{}, errors.ErrUnsupported
}
