package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown, the asset manager ignores it. */
	ResourceTypeNone ResourceType = iota
	/** @brief Text resource type. */
	ResourceTypeText
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type. */
	ResourceTypeImage
	/** @brief Material library (.mtl) resource type. */
	ResourceTypeMaterial
	/** @brief Compiled SPIR-V shader resource type. */
	ResourceTypeShader
	/** @brief Model (.obj) resource type. */
	ResourceTypeModel
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeModel:
		return "model"
	}
	return "none"
}

/**
 * @brief A raw asset as read from disk.
 */
type Resource struct {
	/** @brief The name of the resource, relative to the assets directory. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data []byte
}
