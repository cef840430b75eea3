//go:build !unix

package internal

import "errors"

func availableBytes(path string) (int64, error) {
	return 0, errors.New("disk space check not supported on this platform")
}
