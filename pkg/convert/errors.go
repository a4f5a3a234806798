package convert

// Errors
var (
	ErrShapeMismatch          = &ConvertError{"shape mismatch"}
	ErrRagged                 = &ConvertError{"ragged byte-string list"}
	ErrUnsupportedElementType = &ConvertError{"unsupported element type"}
	ErrUnsupportedImageFormat = &ConvertError{"unsupported image format"}
	ErrSizeOverflow           = &ConvertError{"tensor size overflow"}
)

// ConvertError represents a failed conversion between feature values and
// tensors or images
type ConvertError struct {
	Message string
}

func (e *ConvertError) Error() string {
	return e.Message
}
