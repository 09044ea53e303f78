package traceback

// frame represents a single frame taken from an exception's traceback
type frame struct {
	// Path of the file the frame was executing
	Filename string
	// Line number (1-indexed), zero if not available
	Line int
	// Function name ('<module>' for top-level code)
	Function string
}

// mappedFrame represents a frame resolved against the registered files
type mappedFrame struct {
	frame
	// Name shown for the file, nil if the file is not registered
	DisplayName *string
	// Source text of the line, nil if not available
	SourceLine *string
	// Whether the file was registered
	Mapped bool
}
