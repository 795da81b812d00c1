package vp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeArchiveRecordRejectsWrongSize(t *testing.T) {
	_, err := DecodeArchiveRecord(make([]byte, 10))
	assert.Error(t, err)
}

func TestDecodeArchiveRecordReturnsNotImplementedForValidSize(t *testing.T) {
	_, err := DecodeArchiveRecord(make([]byte, ArchiveRecordSize))
	assert.ErrorIs(t, err, ErrNotImplemented)
}
