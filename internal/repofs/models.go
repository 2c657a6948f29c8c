package repofs

// SourceFile is a repository file selected for analysis.
type SourceFile struct {
	Path string // Relative to the repository root
	Ext  string // Lowercased extension, including the dot
	Size int64  // Size in bytes
}
