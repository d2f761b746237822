package util

import (
	"crypto/sha1"
	"encoding/hex"
	"path"
	"strings"
)

func GetIDFromString(str *string) string {
	hasher := sha1.New()
	hasher.Write([]byte(*str))

	return hex.EncodeToString(hasher.Sum(nil))
}

// NormalizePath turns any tree path into the root-relative, forward-slash form.
// The root is "".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}

	p = path.Clean(p)
	if p == "." {
		return ""
	}

	return p
}

func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "/" + name
}

func BaseName(p string) string {
	p = NormalizePath(p)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}

	return p
}
