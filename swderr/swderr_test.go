package swderr

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
)

func TestDetailBufferTruncatesAndClears(t *testing.T) {
	var d DetailBuffer
	d.Set(New(Timeout, "ack never arrived after %d retries", 8))
	require.Equal(t, "Timeout: ack never arrived after 8 retries", d.String())

	d.Set(New(Bus, "%s", string(make([]byte, detailBufSize+32))))
	require.Len(t, d.String(), detailBufSize)

	d.Set(nil)
	require.Empty(t, d.String())
}

func TestIndentedRendersOrderedFields(t *testing.T) {
	fields := map[string]string{
		"cmderr": "2",
		"busy":   "0",
	}
	got := Indented("abstractcs decode failed", fields, []string{"cmderr", "busy", "missing"})
	require.Equal(t, "abstractcs decode failed\n    cmderr=2\n    busy=0", got)
}

func TestCodeOfUnwrapsJujuErrorsCause(t *testing.T) {
	base := Wrap(NotHalted, ErrNotHalted, "hart %d", 1)
	wrapped := errors.Annotatef(base, "stepping hart %d", 1)

	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	require.Equal(t, NotHalted, code)
}
