package http1

import (
	"math"
	"strings"

	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"github.com/rabbitson87/atomic-http/http"
	"github.com/rabbitson87/atomic-http/http/status"
)

// Parse fills request from a framed message. All produced strings are views
// into msg.Raw: the parser allocates nothing beyond header storage growth.
//
// The request line is split on its first and last space, so a target
// containing spaces survives unmangled. Header lines split at the first
// colon with surrounding whitespace trimmed off the value; lines without a
// colon are skipped rather than rejected.
func Parse(msg Message, request *http.Request) error {
	head := uf.B2S(msg.Raw[:msg.HeaderEnd])

	line, rest, ok := cutLine(head)
	if !ok {
		return status.ErrMalformedRequestLine
	}

	first := strings.IndexByte(line, ' ')
	last := strings.LastIndexByte(line, ' ')
	if first == -1 || first == last {
		return status.ErrMalformedRequestLine
	}

	request.Method = line[:first]
	request.Target = line[first+1 : last]
	request.Proto = line[last+1:]
	if len(request.Method) == 0 || len(request.Target) == 0 || len(request.Proto) == 0 {
		return status.ErrMalformedRequestLine
	}

	for {
		line, rest, ok = cutLine(rest)
		if !ok || len(line) == 0 {
			break
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		request.Headers.Add(key, value)

		switch {
		case strcomp.EqualFold(key, "content-length"):
			length, err := parseContentLength(value)
			if err != nil {
				return err
			}
			request.ContentLength = length
		case strcomp.EqualFold(key, "content-type"):
			request.ContentType = value
		}
	}

	request.Chunked = msg.Chunked
	if msg.Chunked {
		request.ContentLength = len(msg.Body)
	}

	return nil
}

// framing scans the head for just enough to frame the body: the declared
// length and the transfer encoding. A Content-Length, when present, takes
// precedence over chunked framing.
func framing(head []byte) (contentLength int, chunked bool, err error) {
	s := uf.B2S(head)
	hasLength := false

	// skip the request line, its shape is the full parser's business
	_, s, _ = cutLine(s)

	for {
		var line string
		var ok bool
		line, s, ok = cutLine(s)
		if !ok || len(line) == 0 {
			break
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch {
		case strcomp.EqualFold(key, "content-length"):
			contentLength, err = parseContentLength(value)
			if err != nil {
				return 0, false, err
			}
			hasLength = true
		case strcomp.EqualFold(key, "transfer-encoding"):
			chunked = hasChunkedToken(value)
		}
	}

	if hasLength {
		chunked = false
	}

	return contentLength, chunked, nil
}

func parseContentLength(value string) (int, error) {
	if len(value) == 0 {
		return 0, status.ErrInvalidContentLength
	}

	var length int
	for _, c := range []byte(value) {
		if c < '0' || c > '9' {
			return 0, status.ErrInvalidContentLength
		}

		// reject before the next digit can wrap; a wrapped value could
		// frame the request with a silently truncated body
		if length > (math.MaxInt-9)/10 {
			return 0, status.ErrInvalidContentLength
		}

		length = length*10 + int(c-'0')
	}

	return length, nil
}

// cutLine splits off everything up to the next LF, stripping the line break
// and a trailing CR.
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

func hasChunkedToken(value string) bool {
	for len(value) > 0 {
		var token string
		token, value, _ = strings.Cut(value, ",")
		if strcomp.EqualFold(strings.TrimSpace(token), "chunked") {
			return true
		}
	}

	return false
}
