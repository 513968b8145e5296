//go:build !unix && !windows

package world

import "os"

// Platforms without file locking do not protect the world directory.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
