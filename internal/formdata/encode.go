package formdata

import (
	"strings"

	"github.com/rabbitson87/atomic-http/http/form"
)

// Encode flattens a form into a multipart/form-data body with the given
// boundary. It is the wire inverse of Decode and exists mostly for clients
// and tests.
func Encode(f form.Form, boundary string) []byte {
	var b strings.Builder

	for _, part := range f {
		b.WriteString("--")
		b.WriteString(boundary)
		b.WriteString("\r\n")

		b.WriteString(`Content-Disposition: form-data; name="`)
		b.WriteString(part.Name)
		b.WriteString(`"`)
		if part.IsFile() {
			b.WriteString(`; filename="`)
			b.WriteString(part.Filename)
			b.WriteString(`"`)
		}
		b.WriteString("\r\n")

		if len(part.Type) > 0 {
			b.WriteString("Content-Type: ")
			b.WriteString(part.Type)
			b.WriteString("\r\n")
		}

		b.WriteString("\r\n")
		b.WriteString(part.Value)
		b.WriteString("\r\n")
	}

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")

	return []byte(b.String())
}
