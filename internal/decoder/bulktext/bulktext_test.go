package bulktext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLineSkipsBlank(t *testing.T) {
	d := New("AAXX")
	_, ok, err := d.DecodeLine("   ")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestDecodeLineSkipsUnrelated(t *testing.T) {
	d := New("AAXX")
	_, ok, err := d.DecodeLine("some unrelated text")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestDecodeLineReportsNotImplementedForHeader(t *testing.T) {
	d := New("AAXX")
	_, ok, err := d.DecodeLine("AAXX 31151 07645 ...")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotImplemented)
}
