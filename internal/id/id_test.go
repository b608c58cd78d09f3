package id

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("tx")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerateAt_Format(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	tests := []struct {
		name   string
		prefix string
	}{
		{"note", "note"},
		{"transaction", "tx"},
		{"subscriber", "sub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateAt(tt.prefix, at)
			require.NoError(t, err)

			parts := strings.Split(id, "-")
			require.Len(t, parts, 3, "ID: %s", id)
			assert.Equal(t, tt.prefix, parts[0])

			millis, err := strconv.ParseInt(parts[1], 10, 64)
			require.NoError(t, err)
			assert.Equal(t, at.UnixMilli(), millis)

			assert.Len(t, parts[2], suffixLength)
			for _, c := range parts[2] {
				assert.True(t, strings.ContainsRune(suffixAlphabet, c), "unexpected character %q in %s", c, id)
			}
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate("note")
		assert.True(t, strings.HasPrefix(id, "note-"))
	})
}
