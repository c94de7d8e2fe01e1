package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/orrery/engine/assets/loaders"
	"github.com/spaghettifunk/orrery/engine/core"
	"github.com/spaghettifunk/orrery/engine/renderer/metadata"
)

// Size of the buffered channel carrying file change notifications.
const CHANGE_QUEUE_SIZE = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Serves files below the assets directory and, when watching is
 * enabled, reports which of them changed on disk.
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	return &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		changes: make(chan string, CHANGE_QUEUE_SIZE),
		done:    make(chan struct{}),
	}, nil
}

/**
 * @brief Indexes assetsDir and registers the loaders.
 * @param assetsDir The directory every asset name is relative to.
 * @param watch Starts watching the directory tree for changes.
 */
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("assets directory `%s`: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets directory `%s` is not a directory", root)
	}
	am.root = root

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeModel, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeText, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	if !watch {
		return am.walk(root, false)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch

	if err := am.walk(root, true); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("watching assets in `%s`", root)
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

// Changes delivers the asset names modified on disk, relative to the root.
// Nothing is ever sent when watching is disabled.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// resolve maps an asset name to a path under the root, refusing names that escape it.
func (am *AssetManager) resolve(name string) (string, error) {
	if am.root == "" {
		return "", errors.New("asset manager not initialized")
	}
	clean := filepath.FromSlash(name)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: `%s` is outside of the assets directory", core.ErrAssetNotFound, name)
	}
	return filepath.Join(am.root, clean), nil
}

/**
 * @brief Loads an asset with the loader registered for its type.
 * @param ctx Checked before touching the disk.
 * @param name The asset name, relative to the assets directory.
 */
func (am *AssetManager) LoadAsset(ctx context.Context, name string) (*metadata.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := am.resolve(name)
	if err != nil {
		return nil, core.NewResourceError(name, core.ResourceStageRead, err)
	}

	assetType := determineAssetType(name)
	if assetType == metadata.ResourceTypeNone {
		assetType = metadata.ResourceTypeBinary
	}
	loader, loaderExists := am.loaders[assetType]
	if !loaderExists {
		return nil, core.NewResourceError(name, core.ResourceStageRead, fmt.Errorf("no loader registered for asset type: %s", assetType))
	}

	res, err := loader.Load(name, path, assetType)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[name] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	return res, nil
}

// LoadBinary returns the raw content of the named asset.
func (am *AssetManager) LoadBinary(ctx context.Context, name string) ([]byte, error) {
	res, err := am.LoadAsset(ctx, name)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// LoadString returns the content of the named asset as text.
func (am *AssetManager) LoadString(ctx context.Context, name string) (string, error) {
	data, err := am.LoadBinary(ctx, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Info returns what is known about an asset, loaded or only indexed.
func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[name]
	return info, ok
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.walk(e.Name, true); err != nil {
						core.LogWarn("failed to watch `%s`: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if name, ok := am.handleFileEvent(e.Name); ok {
					am.notify(name)
				}
			}
			// Can't stat a deleted entry, drop it from the index in any case.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) notify(name string) {
	select {
	case am.changes <- name:
	default:
		core.LogWarn("asset change queue full, dropping `%s`", name)
	}
}

// walk indexes every file below path and, if watch is set, adds each directory to the watcher.
// A directory is watched before its entries are listed, so a file created meanwhile is either
// listed here or reported by the watcher.
func (am *AssetManager) walk(path string, watch bool) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if watch {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. Returns the asset name.
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	name, err := filepath.Rel(am.root, path)
	if err != nil {
		return "", false
	}
	name = filepath.ToSlash(name)

	assetType := determineAssetType(name)
	if assetType == metadata.ResourceTypeNone {
		return "", false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[name]
	info.Path = path
	info.Type = assetType
	am.assets[name] = info
	return name, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	name, err := filepath.Rel(am.root, path)
	if err != nil {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.ToSlash(name))
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".mtl":
		return metadata.ResourceTypeMaterial
	case ".obj":
		return metadata.ResourceTypeModel
	case ".txt", ".toml":
		return metadata.ResourceTypeText
	default:
		return metadata.ResourceTypeNone
	}
}
