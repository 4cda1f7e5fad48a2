//go:build !windows

package fsys

func platformAttributes(string) Attributes { return 0 }
