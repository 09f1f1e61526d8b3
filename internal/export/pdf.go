package export

import (
	"bytes"
	"fmt"
)

// objectTable accumulates numbered PDF objects and assembles the final file:
// header, body, cross-reference table, trailer. Object numbers are 1-based
// and assigned in insertion order.
type objectTable struct {
	bodies []string
}

// reserve allocates an object number with an empty body to be filled later,
// which lets objects reference each other cyclically (page ↔ pages tree).
func (t *objectTable) reserve() int {
	t.bodies = append(t.bodies, "")
	return len(t.bodies)
}

// set fills a reserved object.
func (t *objectTable) set(ref int, body string) {
	t.bodies[ref-1] = body
}

// add appends a new object and returns its number.
func (t *objectTable) add(body string) int {
	t.bodies = append(t.bodies, body)
	return len(t.bodies)
}

// addStream appends a stream object. extraDict is inserted into the stream
// dictionary after /Length (e.g. "/Filter /FlateDecode").
func (t *objectTable) addStream(extraDict string, data []byte) int {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<< /Length %d %s >>\nstream\n", len(data), extraDict)
	b.Write(data)
	b.WriteString("\nendstream")
	return t.add(b.String())
}

// assemble serializes every object with its offset recorded, then writes the
// xref table and trailer pointing at the catalog.
func (t *objectTable) assemble(catalogRef int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(t.bodies))
	for i, body := range t.bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(t.bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(t.bodies)+1, catalogRef, xrefOffset)
	return buf.Bytes()
}

// escapeString escapes a PDF literal string.
func escapeString(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 128 {
				b.WriteRune(r)
			} else {
				// WinAnsi-ish fallback for the core fonts
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}
