package metadata

type BufferUsage uint32

const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
)

func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

type BufferDescriptor struct {
	Label string
	Usage BufferUsage
	Size  uint64
	// Contents, when set, is uploaded at creation and Size is taken from it.
	Contents []byte
}
