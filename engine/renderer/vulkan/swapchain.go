package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/math"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

/**
 * @brief The swapchain of the window surface. Implements metadata.Surface.
 */
type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []*VulkanImageView
	Width       uint32
	Height      uint32

	// Nanoseconds AcquireFrame waits for an image.
	AcquireTimeout uint64

	context *VulkanContext
	// The last present reported a mismatch with the surface.
	suboptimal bool
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

/**
 * @brief One acquired swapchain image. Implements metadata.Frame.
 */
type VulkanFrame struct {
	swapchain *VulkanSwapchain
	index     uint32
	view      *VulkanImageView
	presented bool
}

func NewVulkanSwapchain(context *VulkanContext) *VulkanSwapchain {
	return &VulkanSwapchain{context: context, AcquireTimeout: VULKAN_ACQUIRE_TIMEOUT}
}

func surfaceError(kind core.SurfaceErrorKind, op string, result vk.Result) error {
	return core.NewSurfaceError(kind, fmt.Errorf("%s returned %s", op, VulkanResultString(result, false)))
}

/**
 * @brief Maps the result of acquire or present. Suboptimal is not an error,
 * the image is still valid.
 */
func swapchainResultError(op string, result vk.Result) error {
	switch result {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.Timeout, vk.NotReady:
		return surfaceError(core.SurfaceErrorTimeout, op, result)
	case vk.ErrorOutOfDate:
		return surfaceError(core.SurfaceErrorOutdated, op, result)
	case vk.ErrorSurfaceLost:
		return surfaceError(core.SurfaceErrorLost, op, result)
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return surfaceError(core.SurfaceErrorOutOfMemory, op, result)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%s: %w", op, core.ErrDeviceLost)
	}
	return resultError(op, result)
}

// PreferredFormat picks an sRGB format the surface supports.
func (vs *VulkanSwapchain) PreferredFormat() metadata.TextureFormat {
	formats := vs.context.Device.SwapchainSupport.Formats
	for _, preferred := range []vk.Format{vk.FormatB8g8r8a8Srgb, vk.FormatR8g8b8a8Srgb} {
		for _, f := range formats {
			if f.Format == preferred && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				return textureFormat(preferred)
			}
		}
	}
	for _, f := range formats {
		if format := textureFormat(f.Format); format != metadata.TextureFormatUndefined {
			return format
		}
	}
	return metadata.TextureFormatBGRA8UnormSrgb
}

func (vs *VulkanSwapchain) presentMode(mode metadata.PresentMode) vk.PresentMode {
	wanted := vk.PresentModeFifo
	switch mode {
	case metadata.PresentModeMailbox:
		wanted = vk.PresentModeMailbox
	case metadata.PresentModeImmediate:
		wanted = vk.PresentModeImmediate
	}
	for _, m := range vs.context.Device.SwapchainSupport.PresentModes {
		if m == wanted {
			return wanted
		}
	}
	// FIFO is the only mode every device supports.
	return vk.PresentModeFifo
}

/**
 * @brief Creates the swapchain again for config. Width and Height are
 * adjusted to the extent the surface accepts.
 */
func (vs *VulkanSwapchain) Configure(config *metadata.SurfaceConfiguration) error {
	device := vs.context.Device
	if err := device.WaitIdle(); err != nil {
		return err
	}
	if err := device.queue.drain(); err != nil {
		return err
	}
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, vs.context.Surface, &device.SwapchainSupport); err != nil {
		return core.NewSurfaceError(core.SurfaceErrorLost, err)
	}
	capabilities := device.SwapchainSupport.Capabilities

	format := vulkanFormat(config.Format)
	supported := false
	for _, f := range device.SwapchainSupport.Formats {
		if f.Format == format {
			vs.ImageFormat = f
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("surface does not support format %s", config.Format)
	}

	if capabilities.MaxImageExtent.Width == 0 || capabilities.MaxImageExtent.Height == 0 {
		// Minimized, nothing can be presented.
		return core.NewSurfaceError(core.SurfaceErrorOutdated, fmt.Errorf("surface has a zero extent"))
	}
	extent := vk.Extent2D{
		Width:  math.Clamp(config.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: math.Clamp(config.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
	if extent.Width != config.Width || extent.Height != config.Height {
		core.LogDebug("swapchain extent adjusted from %dx%d to %dx%d", config.Width, config.Height, extent.Width, extent.Height)
		config.Width = extent.Width
		config.Height = extent.Height
	}

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	preTransform := capabilities.CurrentTransform
	if vk.SurfaceTransformFlagBits(capabilities.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	// Find a supported composite alpha mode - one of these is guaranteed to be set
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if capabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vs.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vs.presentMode(config.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vs.Handle,
	}
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(device.GraphicsQueueIndex), uint32(device.PresentQueueIndex)}
	}

	return vs.context.locks.SafeCall(SwapchainManagement, func() error {
		var handle vk.Swapchain
		if res := vk.CreateSwapchain(device.LogicalDevice, &createInfo, vs.context.Allocator, &handle); res != vk.Success {
			return swapchainResultError("vkCreateSwapchainKHR", res)
		}
		vs.destroySwapchain()
		vs.Handle = handle
		vs.Width = extent.Width
		vs.Height = extent.Height
		vs.suboptimal = false

		var count uint32
		if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, nil); res != vk.Success {
			return resultError("vkGetSwapchainImagesKHR", res)
		}
		vs.Images = make([]vk.Image, count)
		if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, vs.Images); res != vk.Success {
			return resultError("vkGetSwapchainImagesKHR", res)
		}
		vs.ImageCount = count

		vs.Views = make([]*VulkanImageView, count)
		for i, image := range vs.Images {
			view, err := newImageView(vs.context, image, vs.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), extent.Width, extent.Height)
			if err != nil {
				return err
			}
			// The swapchain owns its views.
			view.owned = false
			vs.Views[i] = view
		}
		core.LogDebug("swapchain created: %d images of %dx%d", count, extent.Width, extent.Height)
		return nil
	})
}

/**
 * @brief Acquires the next image. A suboptimal swapchain is reported as
 * outdated so it gets configured again.
 */
func (vs *VulkanSwapchain) AcquireFrame() (metadata.Frame, error) {
	if vs.Handle == vk.NullSwapchain {
		return nil, core.NewSurfaceError(core.SurfaceErrorOutdated, fmt.Errorf("surface is not configured"))
	}
	if vs.suboptimal {
		return nil, core.NewSurfaceError(core.SurfaceErrorOutdated, fmt.Errorf("swapchain is suboptimal"))
	}
	queue := vs.context.Device.queue
	if err := queue.waitFrame(); err != nil {
		return nil, err
	}
	if err := queue.drain(); err != nil {
		return nil, err
	}

	var index uint32
	res := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, vs.AcquireTimeout, queue.imageAvailableSemaphore, vk.NullFence, &index)
	if err := swapchainResultError("vkAcquireNextImageKHR", res); err != nil {
		return nil, err
	}
	if res == vk.Suboptimal {
		vs.suboptimal = true
	}
	queue.imageAcquired = true
	return &VulkanFrame{
		swapchain: vs,
		index:     index,
		view:      vs.Views[index],
	}, nil
}

func (vs *VulkanSwapchain) destroySwapchain() {
	for _, view := range vs.Views {
		view.owned = true
		view.Destroy()
	}
	vs.Views = nil
	vs.Images = nil
	vs.ImageCount = 0
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func (vs *VulkanSwapchain) Destroy() {
	if vs.context.Device == nil || vs.context.Device.LogicalDevice == nil {
		return
	}
	vs.destroySwapchain()
}

func (f *VulkanFrame) View() metadata.TextureView {
	return f.view
}

// Present queues the image for display once rendering to it completed.
func (f *VulkanFrame) Present() error {
	if f.presented {
		return fmt.Errorf("frame already presented")
	}
	f.presented = true

	vs := f.swapchain
	device := vs.context.Device
	queue := device.queue

	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{vs.Handle},
		PImageIndices:  []uint32{f.index},
	}
	if queue.renderPending {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{queue.queueCompleteSemaphore}
	}

	var res vk.Result
	_ = vs.context.locks.SafeQueueCall(uint32(device.PresentQueueIndex), func() error {
		res = vk.QueuePresent(device.PresentQueue, &presentInfo)
		return nil
	})
	queue.renderPending = false
	if res == vk.Suboptimal {
		vs.suboptimal = true
	}
	return swapchainResultError("vkQueuePresentKHR", res)
}
