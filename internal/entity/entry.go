package entity

type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	return [...]string{"file", "directory"}[k]
}

// DirEntry is one child of a listed directory as reported by a tree source.
type DirEntry struct {
	Name         string    // Base name, never contains a path separator
	Kind         EntryKind // File or directory
	RelativePath string    // Root-relative, forward-slash separated
	ContentRef   string    // Location the file can be fetched from. Empty for directories
}

func (e DirEntry) IsDir() bool {
	return e.Kind == KindDirectory
}
