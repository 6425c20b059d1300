package resolved

import (
	"rulegraph/filetag"
	"rulegraph/propertymap"
)

// ArtifactProperties overrides a product's module properties for output
// artifacts whose tags intersect FileTagsFilter, and adds ExtraFileTags to
// those artifacts' final tag set (§4.1.2). The applicator uses the first
// matching filter only.
type ArtifactProperties struct {
	FileTagsFilter filetag.FileTags
	ExtraFileTags  filetag.FileTags
	PropertyMap    *propertymap.PropertyMap
}
