package facility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	for _, f := range List {
		assert.True(t, IsValid(f), "facility %q", f)
	}
	assert.False(t, IsValid("Tennis Court"))
	assert.False(t, IsValid("basketball court"), "matching is exact")
	assert.False(t, IsValid(""))
}

func TestKeyboardRows(t *testing.T) {
	rows := KeyboardRows()

	total := 0
	for _, row := range rows {
		assert.LessOrEqual(t, len(row), 3)
		total += len(row)
	}
	assert.Equal(t, len(List), total, "every facility appears exactly once")
}
