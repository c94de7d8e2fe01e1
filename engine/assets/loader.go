package assets

import "github.com/spaghettifunk/orrery/engine/renderer/metadata"

// Loader reads an asset from disk. name is relative to the assets directory,
// path is where it actually lives.
type Loader interface {
	Load(name, path string, assetType metadata.ResourceType) (*metadata.Resource, error)
}
