package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/galatea/internal/utils/text"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "hello", text.Clean("  <b>hello</b> "))
	assert.Equal(t, "you & me", text.Clean("you & me"))
	assert.Equal(t, "", text.Clean("<script>alert(1)</script>"))
	assert.Equal(t, "a  b", text.Clean("a <img src=x onerror=alert(1)> b"))
}

func TestCleanList(t *testing.T) {
	assert.Equal(t, []string{"Art", "Music"}, text.CleanList([]string{" Art ", "<i></i>", "Music"}))
	assert.NotNil(t, text.CleanList(nil))
}
