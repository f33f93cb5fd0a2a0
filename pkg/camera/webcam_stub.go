//go:build nocv

package camera

// newWebcam returns an error when built without OpenCV.
func newWebcam(cfg Config) (Capturer, error) {
	return nil, ErrUnsupported
}
