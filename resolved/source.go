package resolved

import (
	"time"

	"rulegraph/filetag"
	"rulegraph/propertymap"
)

// SourceArtifactInternal is a source file on disk, optionally tag-overridden
// by the group that declared it (§3).
type SourceArtifactInternal struct {
	AbsoluteFilePath string
	FileTags         filetag.FileTags
	OverrideFileTags bool
	Properties       *propertymap.PropertyMap
}

// SourceWildCards holds a group's expanded wildcard file set (§3, §4.3).
type SourceWildCards struct {
	Prefix          string
	Patterns        []string
	ExcludePatterns []string
	DirTimeStamps   map[string]time.Time
	Files           []string
}
