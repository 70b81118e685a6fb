package openai

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// readBody reads the whole response body, undoing gzip, deflate or brotli encoding.
func readBody(resp *http.Response, url string) (body []byte, e *xerr.Error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	var reader io.Reader = resp.Body
	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, xerr.NewError(err, "unable to open gzip body", url)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "deflate":
		flateReader := flate.NewReader(resp.Body)
		defer flateReader.Close()
		reader = flateReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "", "identity", "none":
	default:
		tl.Log(tl.Warning, palette.YellowDim, "Unsupported Content-Encoding '%s' from '%s', reading as-is", encoding, url)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, xerr.NewError(err, "unable to read response body", url)
	}
	tl.Log(tl.Verbose5, palette.GreenDim, "Read '%v' bytes (encoding '%s') from '%s'", len(body), encoding, url)
	return body, nil
}
