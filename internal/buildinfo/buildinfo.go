// Package buildinfo holds version data stamped in at link time:
//
//	go build -ldflags "-X github.com/brightroot/academy/internal/buildinfo.Version=v1.2.0 \
//	  -X github.com/brightroot/academy/internal/buildinfo.Date=2026-10-16 \
//	  -X github.com/brightroot/academy/internal/buildinfo.Commit=abc123"
package buildinfo

import (
	"fmt"
	"io"
)

const notAvailable = "N/A"

var (
	Version = notAvailable
	Date    = notAvailable
	Commit  = notAvailable
)

// PrintBuildData writes version, date and commit to w, one per line.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", orNA(Version))
	fmt.Fprintf(w, "Build date: %s\n", orNA(Date))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(Commit))
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
