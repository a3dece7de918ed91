//go:build !unix

package splat

import "errors"

func mapFile(path string) ([]byte, error) {
	return nil, errors.New("memory mapping not supported")
}

func unmapFile(data []byte) error {
	return nil
}
