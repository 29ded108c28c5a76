package lockfile

import "github.com/gofrs/flock"

// tryFlock takes a non-blocking exclusive advisory lock on the sidecar,
// creating the file if it does not exist. A variable so tests can inject
// race interleavings that need a second process.
var tryFlock = func(path string) (flocker, bool, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, err
	}
	return fl, locked, nil
}
