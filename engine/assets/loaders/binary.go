package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(name, path string, assetType metadata.ResourceType) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s", core.ErrAssetNotFound, path)
		}
		return nil, core.NewResourceError(name, core.ResourceStageRead, err)
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     assetType,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

// bytesToBytecode packs little endian bytes into 32 bit words. Trailing
// bytes that do not fill a word are dropped.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
