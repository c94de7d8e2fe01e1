package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

var resultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.EventSet:                  "VK_EVENT_SET",
	vk.EventReset:                "VK_EVENT_RESET",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.Suboptimal:                "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:   "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:          "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:    "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:            "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:  "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorFragmentation:        "VK_ERROR_FRAGMENTATION",
	vk.ErrorUnknown:              "VK_ERROR_UNKNOWN",
}

/**
 * @brief Names a result code. The extended form carries the numeric value
 * as well, for codes missing from the table.
 */
func VulkanResultString(result vk.Result, getExtended bool) string {
	name, ok := resultNames[result]
	if !ok {
		name = "VK_RESULT_UNKNOWN"
	}
	return ConditionalOperator(!getExtended, name, fmt.Sprintf("%s (%d)", name, int32(result)))
}

// VulkanResultIsSuccess is true for every non-negative result code.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= vk.Success
}

// resultError turns a failed call into an error naming the operation.
func resultError(op string, result vk.Result) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	return fmt.Errorf("%s failed with %s", op, VulkanResultString(result, true))
}

func ConditionalOperator(condition bool, res1, res2 string) string {
	if condition {
		return res1
	}
	return res2
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cString reads a fixed size, zero terminated name returned by the driver.
func cString(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}

func vulkanFormat(format metadata.TextureFormat) vk.Format {
	switch format {
	case metadata.TextureFormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.TextureFormatRGBA8UnormSrgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.TextureFormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case metadata.TextureFormatBGRA8UnormSrgb:
		return vk.FormatB8g8r8a8Srgb
	case metadata.TextureFormatDepth32Float:
		return vk.FormatD32Sfloat
	}
	return vk.FormatUndefined
}

func textureFormat(format vk.Format) metadata.TextureFormat {
	switch format {
	case vk.FormatR8g8b8a8Unorm:
		return metadata.TextureFormatRGBA8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return metadata.TextureFormatRGBA8UnormSrgb
	case vk.FormatB8g8r8a8Unorm:
		return metadata.TextureFormatBGRA8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return metadata.TextureFormatBGRA8UnormSrgb
	case vk.FormatD32Sfloat:
		return metadata.TextureFormatDepth32Float
	}
	return metadata.TextureFormatUndefined
}

func vertexFormat(format metadata.VertexFormat) vk.Format {
	switch format {
	case metadata.VertexFormatFloat32x2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatUndefined
}

func compareOp(fn metadata.CompareFunction) vk.CompareOp {
	switch fn {
	case metadata.CompareFunctionNever:
		return vk.CompareOpNever
	case metadata.CompareFunctionLess:
		return vk.CompareOpLess
	case metadata.CompareFunctionEqual:
		return vk.CompareOpEqual
	case metadata.CompareFunctionLessEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareFunctionGreater:
		return vk.CompareOpGreater
	case metadata.CompareFunctionNotEqual:
		return vk.CompareOpNotEqual
	case metadata.CompareFunctionGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	}
	return vk.CompareOpAlways
}

func shaderStageFlags(stage metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if stage&metadata.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if stage&metadata.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	return flags
}

func attachmentLoadOp(op metadata.LoadOp) vk.AttachmentLoadOp {
	if op == metadata.LoadOpLoad {
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpClear
}

func attachmentStoreOp(op metadata.StoreOp) vk.AttachmentStoreOp {
	if op == metadata.StoreOpDiscard {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}
