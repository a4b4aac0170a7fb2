package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReference(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		ref := NewReference()
		assert.Regexp(t, `^WTX-[0-9A-F]{32}$`, ref)
		assert.LessOrEqual(t, len(ref), MaxReferenceLength)
		_, dup := seen[ref]
		assert.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}
