//go:build !unix && !windows

package usage

func lockProbe(string) bool { return false }
