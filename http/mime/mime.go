package mime

import "path/filepath"

type MIME = string

const (
	OctetStream    MIME = "application/octet-stream"
	Plain          MIME = "text/plain"
	HTML           MIME = "text/html"
	XML            MIME = "text/xml"
	JSON           MIME = "application/json"
	PDF            MIME = "application/pdf"
	FormUrlencoded MIME = "application/x-www-form-urlencoded"
	Multipart      MIME = "multipart/form-data"
	ZIP            MIME = "application/zip"
	GZIP           MIME = "application/gzip"
	CSS            MIME = "text/css"
	GIF            MIME = "image/gif"
	JPEG           MIME = "image/jpeg"
	PNG            MIME = "image/png"
	SVG            MIME = "image/svg+xml"
	ICO            MIME = "image/vnd.microsoft.icon"
	WEBP           MIME = "image/webp"
	JAVASCRIPT     MIME = "text/javascript"
	WASM           MIME = "application/wasm"
)

var Extension = map[string]MIME{
	".css":  CSS,
	".gif":  GIF,
	".gz":   GZIP,
	".htm":  HTML,
	".html": HTML,
	".ico":  ICO,
	".jpeg": JPEG,
	".jpg":  JPEG,
	".js":   JAVASCRIPT,
	".json": JSON,
	".mjs":  JAVASCRIPT,
	".pdf":  PDF,
	".png":  PNG,
	".svg":  SVG,
	".txt":  Plain,
	".wasm": WASM,
	".webp": WEBP,
	".xml":  XML,
	".zip":  ZIP,
}

// ByExtension guesses the MIME of a file by its path extension, falling back
// to application/octet-stream.
func ByExtension(path string) MIME {
	if m, found := Extension[filepath.Ext(path)]; found {
		return m
	}

	return OctetStream
}
