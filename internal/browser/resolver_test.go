package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeCSSSelector(t *testing.T) {
	assert.Equal(t, "family-name", escapeCSSSelector("family-name"))
	assert.Equal(t, `part1\.name`, escapeCSSSelector("part1.name"))
	assert.Equal(t, `a\:b\[0\]`, escapeCSSSelector("a:b[0]"))
	assert.Equal(t, `x\ y`, escapeCSSSelector("x y"))
}

func TestEscapeAttributeValue(t *testing.T) {
	assert.Equal(t, `Say \"hi\"`, escapeAttributeValue(`Say "hi"`))
	assert.Equal(t, `C:\\path`, escapeAttributeValue(`C:\path`))
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"zip code"`, xpathLiteral("zip code"))
	assert.Equal(t, `'the "best" firm'`, xpathLiteral(`the "best" firm`))
	assert.Equal(t, `concat("o'", '"', "neil")`, xpathLiteral(`o'"neil`))
}

func TestLabelXPath(t *testing.T) {
	xp := labelXPath("Date of Birth")
	assert.Contains(t, xp, `"date of birth"`)
	assert.Contains(t, xp, "translate(normalize-space(string(.))")
	assert.Contains(t, xp, "//label[")
}

func TestStepErr(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()

	err := stepErr(expired, "wait for page load", errors.New("context deadline exceeded"))
	assert.ErrorIs(t, err, ErrInteractionTimeout)
	assert.Equal(t, "interaction timeout: wait for page load: context deadline exceeded", err.Error())

	err = stepErr(context.Background(), "navigate", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrInteractionTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = stepErr(context.Background(), "navigate", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	assert.NotErrorIs(t, err, ErrInteractionTimeout)
	assert.Equal(t, "navigate: net::ERR_NAME_NOT_RESOLVED", err.Error())
}
