package formdata

import (
	"strings"

	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"github.com/rabbitson87/atomic-http/http/form"
	"github.com/rabbitson87/atomic-http/http/status"
)

// Boundary extracts the boundary parameter from a multipart content type
// value.
func Boundary(contentType string) (boundary string, found bool) {
	params := contentType
	for len(params) > 0 {
		var seg string
		seg, params, _ = strings.Cut(params, ";")
		seg = strings.TrimSpace(seg)

		key, value, ok := strings.Cut(seg, "=")
		if ok && strcomp.EqualFold(key, "boundary") {
			value = strings.Trim(value, `"`)
			return value, len(value) > 0
		}
	}

	return "", false
}

// Decode parses a complete multipart/form-data body. Every produced string
// is a view into body: names, filenames, types and values all share the
// arena lifetime of the buffer body points into.
//
// Both CRLF and bare LF line endings are accepted. A body that never reaches
// the terminal two-dash marker is malformed, however much of it parsed.
func Decode(body []byte, boundary string) (form.Form, error) {
	delim := "--" + boundary
	s := uf.B2S(body)

	// everything before the first delimiter is preamble
	idx := strings.Index(s, delim)
	if idx == -1 {
		return nil, status.ErrMalformedMultipart
	}
	s = s[idx+len(delim):]

	var result form.Form

	for {
		if strings.HasPrefix(s, "--") {
			return result, nil
		}

		var ok bool
		s, ok = consumeEOL(s)
		if !ok {
			return nil, status.ErrMalformedMultipart
		}

		var part form.Data
		for {
			var line string
			line, s, ok = cutLine(s)
			if !ok {
				return nil, status.ErrMalformedMultipart
			}

			if len(line) == 0 {
				break
			}

			key, value, found := strings.Cut(line, ":")
			if !found {
				// tolerated the same way the head parser tolerates them
				continue
			}
			value = strings.TrimSpace(value)

			switch {
			case strcomp.EqualFold(key, "Content-Disposition"):
				part.Name, part.Filename = dispositionParams(value)
			case strcomp.EqualFold(key, "Content-Type"):
				part.Type = value
			}
		}

		if len(part.Name) == 0 {
			return nil, status.ErrMalformedMultipart
		}

		next := strings.Index(s, delim)
		if next == -1 {
			return nil, status.ErrMalformedMultipart
		}

		part.Value = rstripEOL(s[:next])
		s = s[next+len(delim):]
		result = append(result, part)
	}
}

func dispositionParams(params string) (name, filename string) {
	for len(params) > 0 {
		var seg string
		seg, params, _ = strings.Cut(params, ";")
		seg = strings.TrimSpace(seg)

		key, value, found := strings.Cut(seg, "=")
		if !found {
			continue
		}

		value = strings.Trim(value, `"`)
		switch key {
		case "name":
			name = value
		case "filename":
			filename = value
		}
	}

	return name, filename
}

// cutLine splits off everything up to the next LF, stripping the line break
// itself and a trailing CR if present.
func cutLine(s string) (line, rest string, ok bool) {
	lf := strings.IndexByte(s, '\n')
	if lf == -1 {
		return "", s, false
	}

	line = s[:lf]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return line, s[lf+1:], true
}

func consumeEOL(s string) (rest string, ok bool) {
	switch {
	case strings.HasPrefix(s, "\r\n"):
		return s[2:], true
	case strings.HasPrefix(s, "\n"):
		return s[1:], true
	default:
		return s, false
	}
}

func rstripEOL(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]

		if len(s) > 0 && s[len(s)-1] == '\r' {
			s = s[:len(s)-1]
		}
	}

	return s
}
