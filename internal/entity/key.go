package entity

import "fmt"

type KeyKind int

const (
	KeyReal KeyKind = iota
	KeyDefault
	KeyRoot
)

const (
	DefaultKeyName = "_default"
	RootKeyName    = "_root"
)

// Key addresses a subtype or a group inside a category. Placeholder keys are
// kept apart from real directory names until the catalog is encoded.
type Key struct {
	Kind KeyKind
	Name string
}

func RealKey(name string) Key {
	return Key{Kind: KeyReal, Name: name}
}

func DefaultKey() Key {
	return Key{Kind: KeyDefault}
}

func RootKey() Key {
	return Key{Kind: KeyRoot}
}

func (k Key) IsPlaceholder() bool {
	return k.Kind != KeyReal
}

func (k Key) String() string {
	switch k.Kind {
	case KeyDefault:
		return DefaultKeyName
	case KeyRoot:
		return RootKeyName
	}

	return k.Name
}

// Label is the human readable form used in summaries.
func (k Key) Label() string {
	switch k.Kind {
	case KeyDefault:
		return "(direct files)"
	case KeyRoot:
		return "(root files)"
	}

	return k.Name
}

func (k Key) MarshalText() ([]byte, error) {
	if k.Kind == KeyReal && IsReservedName(k.Name) {
		return nil, fmt.Errorf("real key %q collides with a placeholder", k.Name)
	}

	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	*k = ParseKey(string(text))

	return nil
}

func ParseKey(s string) Key {
	switch s {
	case DefaultKeyName:
		return DefaultKey()
	case RootKeyName:
		return RootKey()
	}

	return RealKey(s)
}

func IsReservedName(name string) bool {
	return name == DefaultKeyName || name == RootKeyName
}
