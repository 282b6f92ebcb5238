package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextBatchStatus_StaysProcessingUntilAllAccountedFor(t *testing.T) {
	total := 5

	assert.Equal(t, BatchStatusProcessing, NextBatchStatus(0, 0, total))
	assert.Equal(t, BatchStatusProcessing, NextBatchStatus(2, 1, total))
	assert.Equal(t, BatchStatusProcessing, NextBatchStatus(4, 0, total))
}

func TestNextBatchStatus_CompletedWhenNoFailures(t *testing.T) {
	assert.Equal(t, BatchStatusCompleted, NextBatchStatus(5, 0, 5))
	assert.Equal(t, BatchStatusCompleted, NextBatchStatus(1, 0, 1))
}

func TestNextBatchStatus_PartialFailureWhenAnyFailed(t *testing.T) {
	assert.Equal(t, BatchStatusPartialFailure, NextBatchStatus(4, 1, 5))
	assert.Equal(t, BatchStatusPartialFailure, NextBatchStatus(0, 5, 5))
}

func TestAllowedContentTypes_RoundTrip(t *testing.T) {
	for fileType, contentType := range AllowedFileTypes {
		assert.Equal(t, fileType, AllowedContentTypes[contentType])
	}
}

func TestContentTypeForFilename(t *testing.T) {
	ct, ok := ContentTypeForFilename("scan.pdf")
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", ct)

	ct, ok = ContentTypeForFilename("Photo.JPEG")
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)

	_, ok = ContentTypeForFilename("notes.txt")
	assert.False(t, ok)

	_, ok = ContentTypeForFilename("no-extension")
	assert.False(t, ok)
}
