package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartVecCommonPrefixLength(t *testing.T) {
	a := PartVec{1, 5, 9, 0}
	b := PartVec{1, 5, 2, 0}
	assert.Equal(t, 2, a.Common(b))
}

func TestPartVecCommonIdenticalIsFullLength(t *testing.T) {
	a := PartVec{1, 2, 3, 4}
	b := PartVec{1, 2, 3, 4}
	assert.Equal(t, len(a), a.Common(b))
}

func TestPartVecCommonDiffersAtFirstEntry(t *testing.T) {
	a := PartVec{0, 0, 0, 0}
	b := PartVec{1, 0, 0, 0}
	assert.Equal(t, 0, a.Common(b))
}
