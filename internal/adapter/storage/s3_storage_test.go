package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	key := resultKey(now, "translated_comic_abc.png")
	assert.True(t, strings.HasPrefix(key, "results/2026/03/07/"), key)
	assert.True(t, strings.HasSuffix(key, "/translated_comic_abc.png"), key)

	// Каталоги из имени файла отбрасываются
	key = resultKey(now, "../../etc/out.png")
	assert.True(t, strings.HasSuffix(key, "/out.png"), key)
	assert.NotContains(t, key, "..")

	assert.NotEqual(t, resultKey(now, "a.png"), resultKey(now, "a.png"))
}
