package chunker

import (
	"github.com/minio/highwayhash"
)

var key = []byte("ragpipe-chunk-checksum-key-00032")

// Checksum returns a 64-bit highwayhash of data.
func Checksum(data []byte) (uint64, error) {
	h, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
