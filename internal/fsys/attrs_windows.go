//go:build windows

package fsys

import "golang.org/x/sys/windows"

func platformAttributes(name string) Attributes {
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0
	}
	raw, err := windows.GetFileAttributes(ptr)
	if err != nil {
		return 0
	}
	var a Attributes
	if raw&windows.FILE_ATTRIBUTE_HIDDEN != 0 {
		a |= AttrHidden
	}
	if raw&windows.FILE_ATTRIBUTE_SYSTEM != 0 {
		a |= AttrSystem
	}
	return a
}
