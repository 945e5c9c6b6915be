package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/image2pdf/pkg/logger"
)

func TestDeliverer_UniqueKey(t *testing.T) {
	d := newDeliverer(context.Background(), nil, logger.NewTestLogger())
	defer d.cancel()

	assert.Equal(t, "photo.pdf", d.uniqueKey("photo.pdf"))
	assert.Equal(t, "photo (1).pdf", d.uniqueKey("photo.pdf"))
	assert.Equal(t, "photo (2).pdf", d.uniqueKey("photo.pdf"))
	// a later input whose own name matches a generated key
	assert.Equal(t, "photo (1) (1).pdf", d.uniqueKey("photo (1).pdf"))
	assert.Equal(t, "other.pdf", d.uniqueKey("other.pdf"))
}
