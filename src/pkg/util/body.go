package util

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/tuumbleweed/xerr"
)

// AcceptEncoding is sent by clients that read responses through GetBody.
const AcceptEncoding = "gzip, br"

/*
GetBody reads the whole response body, decoding gzip and brotli content encodings.

Setting Accept-Encoding by hand disables the transport's own gzip handling,
so any client that sends AcceptEncoding must read bodies through here.
*/
func GetBody(resp *http.Response, urlStr string) (body []byte, e *xerr.Error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			e = xerr.NewError(err, "Unable to get gzip reader", urlStr)
			return nil, e
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		e = xerr.NewError(fmt.Errorf("content encoding is '%s'", resp.Header.Get("Content-Encoding")), "Unsupported response encoding", urlStr)
		return nil, e
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		e = xerr.NewError(err, "Failed to read response body", urlStr)
		return nil, e
	}
	return body, nil
}
