package swderr

import (
	"strings"

	"github.com/kr/text"
)

// detailBufSize mirrors the original C implementation's
// char error_detail[128] field, so session diagnostics stay a
// bounded, fixed-size artifact rather than an unbounded log line.
const detailBufSize = 128

// DetailBuffer is the per-session "128-byte textual detail buffer"
// from spec.md §7: overwritten on every non-OK result, read by humans,
// never consulted by machine logic (that's Code's job).
type DetailBuffer struct {
	text string
}

// Set records err as the session's last-error detail. A nil err
// clears the buffer.
func (d *DetailBuffer) Set(err error) {
	if err == nil {
		d.text = ""
		return
	}
	s := err.Error()
	if len(s) > detailBufSize {
		s = s[:detailBufSize]
	}
	d.text = s
}

// String returns the current detail text, never more than 128 bytes.
func (d *DetailBuffer) String() string {
	return d.text
}

// Indented renders multi-line decode text (e.g. ABSTRACTCS/SBCS field
// dumps assembled by the DM layer) indented for inclusion underneath a
// one-line summary, in the style expected of CLI diagnostic output.
func Indented(summary string, fields map[string]string, order []string) string {
	var b strings.Builder
	b.WriteString(summary)
	b.WriteByte('\n')
	var lines strings.Builder
	for _, k := range order {
		v, ok := fields[k]
		if !ok {
			continue
		}
		lines.WriteString(k)
		lines.WriteString("=")
		lines.WriteString(v)
		lines.WriteByte('\n')
	}
	b.WriteString(text.Indent(strings.TrimRight(lines.String(), "\n"), "    "))
	return b.String()
}
