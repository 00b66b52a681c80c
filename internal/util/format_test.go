package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "/games/a.d64", TruncatePath("/games/a.d64", 20))
	got := TruncatePath("/home/user/games/123_Elite/ELITE.D64", 16)
	assert.Equal(t, "...ite/ELITE.D64", got)
	assert.Len(t, got, 16)
}

func TestTruncatePath_TinyWidths(t *testing.T) {
	assert.Equal(t, "64", TruncatePath("/games/a.d64", 2))
	assert.Equal(t, "", TruncatePath("/games/a.d64", 0))
	assert.Equal(t, "", TruncatePath("/games/a.d64", -5))
	assert.Equal(t, "...4", TruncatePath("/games/a.d64", 4))
}
