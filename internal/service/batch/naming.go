package batch

import "strings"

// DeriveFileName replaces the last extension of name with ".pdf". A name
// without one gets ".pdf" appended. Only the final segment after a '/'
// is considered, so directories containing dots are left alone.
func DeriveFileName(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 || dot == len(name)-1 || strings.ContainsRune(name[dot+1:], '/') {
		return name + ".pdf"
	}
	return name[:dot] + ".pdf"
}
