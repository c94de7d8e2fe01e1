package loaders

import (
	"fmt"

	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// SPIRV_MAGIC is the first word of every SPIR-V module.
const SPIRV_MAGIC uint32 = 0x07230203

type ShaderLoader struct {
	BinaryLoader
}

// Load reads a compiled SPIR-V module and checks that it looks like one.
func (sl *ShaderLoader) Load(name, path string, assetType metadata.ResourceType) (*metadata.Resource, error) {
	res, err := sl.BinaryLoader.Load(name, path, assetType)
	if err != nil {
		return nil, err
	}
	if _, err := SPIRVFromBytes(res.Data); err != nil {
		return nil, core.NewResourceError(name, core.ResourceStageParse, err)
	}
	return res, nil
}

// SPIRVFromBytes converts a SPIR-V binary into the words a shader module expects.
func SPIRVFromBytes(data []byte) ([]uint32, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: spir-v size %d is not a multiple of 4", core.ErrUnsupportedFormat, len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != SPIRV_MAGIC {
		return nil, fmt.Errorf("%w: bad spir-v magic 0x%08x", core.ErrUnsupportedFormat, code[0])
	}
	return code, nil
}
