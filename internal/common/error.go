package common

import "fmt"

var (
	ErrSourceUnavailable                = fmt.Errorf("listing unavailable")
	ErrDirectoryAbsent                  = fmt.Errorf("directory absent")
	ErrSourceFatal                      = fmt.Errorf("source failure is fatal")
	ErrReservedName                     = fmt.Errorf("directory name collides with a reserved key")
	ErrIndexingProcessHasAlreadyStarted = fmt.Errorf("indexing process has already started")
	ErrCatalogNotFound                  = fmt.Errorf("catalog not found")
	ErrCategoryNotFound                 = fmt.Errorf("category not found")
)
