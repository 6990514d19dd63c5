package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encode returns the on-disk form of v: JSON indented by four spaces with
// every non-ASCII character written as a \uXXXX escape and no trailing
// newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

const hexDigits = "0123456789abcdef"

func escapeNonASCII(data []byte) []byte {
	i := 0
	for i < len(data) && data[i] < utf8.RuneSelf {
		i++
	}
	if i == len(data) {
		return data
	}

	out := make([]byte, i, len(data)+len(data)/2)
	copy(out, data[:i])
	for rest := data[i:]; len(rest) > 0; {
		if rest[0] < utf8.RuneSelf {
			out = append(out, rest[0])
			rest = rest[1:]
			continue
		}
		r, size := utf8.DecodeRune(rest)
		rest = rest[size:]
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = appendEscape(out, r1)
			out = appendEscape(out, r2)
			continue
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigits[r>>12&0xf], hexDigits[r>>8&0xf],
		hexDigits[r>>4&0xf], hexDigits[r&0xf])
}

// Load normalises the raw bytes of a stored document. Empty input is
// absent. Valid JSON is returned as is. Anything else is retried through
// the fallback character sets; if none of them yields valid JSON the
// document is corrupt and a warning is logged.
func Load(key string, raw []byte, logger hclog.Logger) Document {
	doc := Document{Key: key}
	if len(raw) == 0 {
		return doc
	}
	if json.Valid(raw) {
		doc.Data, doc.Status = raw, StatusOK
		return doc
	}

	for _, fb := range fallbacks(raw) {
		text, _, err := transform.Bytes(fb.t, raw)
		if err != nil || !json.Valid(text) {
			continue
		}
		if logger != nil {
			logger.Warn("recovered document using fallback encoding", "key", key, "encoding", fb.name)
		}
		doc.Data, doc.Status = text, StatusRecovered
		return doc
	}

	if logger != nil {
		logger.Warn("document is not valid JSON, treating as absent", "key", key, "size", len(raw))
	}
	doc.Status = StatusCorrupt
	return doc
}

type fallback struct {
	name string
	t    transform.Transformer
}

var (
	utf8BOM    = []byte{0xef, 0xbb, 0xbf}
	utf16LEBOM = []byte{0xff, 0xfe}
	utf16BEBOM = []byte{0xfe, 0xff}
)

// fallbacks lists the decoders worth trying for raw. A byte-order mark
// decides the encoding outright. Otherwise only input that is not UTF-8 is
// retried, first as GB18030 and then as Windows-1252.
func fallbacks(raw []byte) []fallback {
	if bytes.HasPrefix(raw, utf8BOM) || bytes.HasPrefix(raw, utf16LEBOM) || bytes.HasPrefix(raw, utf16BEBOM) {
		return []fallback{{
			name: "bom",
			t:    unicode.BOMOverride(encoding.Nop.NewDecoder()),
		}}
	}
	if utf8.Valid(raw) {
		return nil
	}
	return []fallback{
		{name: "gb18030", t: simplifiedchinese.GB18030.NewDecoder()},
		{name: "windows-1252", t: charmap.Windows1252.NewDecoder()},
	}
}
