/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// ByteSize represents a size in bytes.
// It may be configured both as an integer and as a human-readable string (e.g. "250M", "1Gi").
type ByteSize uint64

// String returns the human-readable string representation.
func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// ParseByteSize parses a human-readable size. Kubernetes-like power-of-two suffixes ("Mi", "Gi") are accepted too.
func ParseByteSize(s string) (ByteSize, error) {
	for _, k8sSuffix := range [...]string{"Ki", "Mi", "Gi", "Ti", "Pi", "Ei"} {
		if strings.HasSuffix(s, k8sSuffix) {
			s = s[:len(s)-1]
			break
		}
	}
	n, err := bytefmt.ToBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}
