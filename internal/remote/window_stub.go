//go:build !windows

package remote

// findWindowByTitle fails on non-windows builds. The core packages and
// their tests still build everywhere; only live operation needs windows.
func findWindowByTitle(string) (Window, error) {
	return nil, ErrUnsupportedPlatform
}
