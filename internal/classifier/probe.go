package classifier

import "github.com/jgivc/stlcatalog/internal/entity"

// A Probe is what the classifier learned about one directory: content sitting
// directly in it, a structural directory with probed children, or a terminal
// content folder attributed to its parent.
type Probe interface{ isProbe() }

type Direct struct {
	Path  string
	Files []entity.ContentFile
}

func (*Direct) isProbe() {}

type Nested struct {
	Name     string
	Path     string
	Children []Probe
}

func (*Nested) isProbe() {}

// ContentFolder holds the files of a folder below a standard. AttributedTo is
// the standard's path; Inferred is set when the folder was recognized by its
// files rather than its name.
type ContentFolder struct {
	Path         string
	AttributedTo string
	Inferred     bool
	Files        []entity.ContentFile
}

func (*ContentFolder) isProbe() {}
