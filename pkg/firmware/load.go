package firmware

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/ulikunitz/xz"
)

var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// Decompress returns data unchanged unless it is an xz stream, in which case
// the decompressed stream is returned.
func Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, xzMagic) {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not open xz stream: %w", err)
	}
	res, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not decompress xz stream: %w", err)
	}
	glog.V(1).Infof("Decompressed %d bytes of xz into %d bytes", len(data), len(res))
	return res, nil
}

// Load reads a firmware file from disk, transparently decompressing xz.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decompress(data)
}
