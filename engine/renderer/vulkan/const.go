package vulkan

/**
 * @brief Max number of bind groups alive at once. Sizes the descriptor pool.
 * @todo TODO: make configurable
 */
const VULKAN_MAX_BIND_GROUP_COUNT uint32 = 1024

/**
 * @brief Max number of descriptors of one type in the pool.
 */
const VULKAN_MAX_DESCRIPTOR_COUNT uint32 = 4096

// How long acquiring a swapchain image may block, in nanoseconds.
const VULKAN_ACQUIRE_TIMEOUT uint64 = 1_000_000_000
