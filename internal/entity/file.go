package entity

// ContentFile is a file accepted into the catalog.
type ContentFile struct {
	Name       string `json:"name" msgpack:"n"`
	Path       string `json:"path" msgpack:"p"`
	ContentRef string `json:"downloadUrl,omitempty" msgpack:"u,omitempty"`
}

// Group is the leaf of the catalog: the files found in one directory.
type Group struct {
	Files []ContentFile `json:"files" msgpack:"f"`
	Path  string        `json:"path" msgpack:"p"`
}
