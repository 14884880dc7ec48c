package format

import "errors"

// ErrUnsupportedFormat indicates an output format name outside Names().
var ErrUnsupportedFormat = errors.New("unsupported output format")
