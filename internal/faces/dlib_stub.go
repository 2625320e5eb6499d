//go:build !dlib

package faces

import "fmt"

// NewDlibEncoder reports that this binary was built without dlib support.
// Rebuild with -tags dlib (requires libdlib) to enable it.
func NewDlibEncoder(modelsDir string) (Encoder, error) {
	return nil, fmt.Errorf("%w: built without the dlib tag", ErrUnavailable)
}
