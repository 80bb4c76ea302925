package reader

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultEncodings are the candidate encodings tried when none are
// configured.
var DefaultEncodings = []string{"utf-8", "windows-1252", "iso-8859-1"}

var encodingAliases = map[string]string{
	"utf8":    "utf-8",
	"latin1":  "iso-8859-1",
	"latin-1": "iso-8859-1",
	"cp1252":  "windows-1252",
	"cp1250":  "windows-1250",
	"cp1251":  "windows-1251",
}

// codePages maps Windows code page numbers, as declared by SPSS files, to
// encoding names.
var codePages = map[int32]string{
	437:   "ibm437",
	850:   "ibm850",
	874:   "windows-874",
	1250:  "windows-1250",
	1251:  "windows-1251",
	1252:  "windows-1252",
	1253:  "windows-1253",
	1254:  "windows-1254",
	1255:  "windows-1255",
	1256:  "windows-1256",
	1257:  "windows-1257",
	1258:  "windows-1258",
	20127: "us-ascii",
	28591: "iso-8859-1",
	28592: "iso-8859-2",
	28605: "iso-8859-15",
	65001: "utf-8",
}

// textDecoder converts raw bytes to UTF-8 text.
type textDecoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// lookupEncoding resolves an encoding name through the IANA registry.
func lookupEncoding(name string) (textDecoder, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := encodingAliases[n]; ok {
		n = a
	}
	if n == "utf-8" || n == "us-ascii" || n == "ascii" {
		return textDecoder{name: n}, nil
	}
	enc, err := ianaindex.IANA.Encoding(n)
	if err != nil || enc == nil {
		return textDecoder{}, fmt.Errorf("unknown encoding %q", name)
	}
	return textDecoder{name: n, enc: enc}, nil
}

// decode converts b, reporting false when b is not valid in the encoding:
// invalid UTF-8, bytes mapping to U+FFFD, or C1 controls under ISO-8859-1.
func (d textDecoder) decode(b []byte) (string, bool) {
	if d.enc == nil {
		if !utf8.Valid(b) {
			return "", false
		}
		return string(b), true
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	if d.name == "iso-8859-1" && hasC1(out) {
		return "", false
	}
	return string(out), true
}

// lossy converts b, replacing invalid sequences.
func (d textDecoder) lossy(b []byte) string {
	if s, ok := d.decode(b); ok {
		return s
	}
	if d.enc == nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	out, _ := d.enc.NewDecoder().Bytes(b)
	return string(out)
}

func hasC1(s []byte) bool {
	for _, r := range string(s) {
		if r >= 0x80 && r <= 0x9f {
			return true
		}
	}
	return false
}

// decodeText decodes a text file with the first candidate that accepts it.
// A detected charset that names one of the candidates is tried first.
func decodeText(filename string, content []byte, opts Options) (string, string, error) {
	content = stripBOM(content)
	candidates := orderCandidates(content, opts.encodings())
	for _, name := range candidates {
		d, err := lookupEncoding(name)
		if err != nil {
			opts.logger().Warn("skipping encoding", slog.String("encoding", name), slog.String("error", err.Error()))
			continue
		}
		if text, ok := d.decode(content); ok {
			return text, name, nil
		}
		opts.logger().Debug("encoding rejected", slog.String("file", filename), slog.String("encoding", name))
	}
	return "", "", &DecodeError{Path: filename, Tried: candidates}
}

// chooseDecoder picks the first candidate accepting every sample.
func chooseDecoder(filename string, samples [][]byte, opts Options) (textDecoder, error) {
	joined := bytes.Join(samples, []byte{'\n'})
	candidates := orderCandidates(joined, opts.encodings())
	for _, name := range candidates {
		d, err := lookupEncoding(name)
		if err != nil {
			continue
		}
		if _, ok := d.decode(joined); ok {
			return d, nil
		}
		opts.logger().Debug("encoding rejected", slog.String("file", filename), slog.String("encoding", name))
	}
	return textDecoder{}, &DecodeError{Path: filename, Tried: candidates}
}

// orderCandidates moves the candidate matching the detected charset to the
// front. Valid UTF-8 keeps the configured order.
func orderCandidates(content []byte, candidates []string) []string {
	if len(content) == 0 || utf8.Valid(content) {
		return candidates
	}
	res, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || res == nil {
		return candidates
	}
	hint := normalizeCharset(res.Charset)
	for i, c := range candidates {
		if normalizeCharset(c) == hint {
			out := make([]string, 0, len(candidates))
			out = append(out, c)
			out = append(out, candidates[:i]...)
			return append(out, candidates[i+1:]...)
		}
	}
	return candidates
}

func normalizeCharset(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := encodingAliases[n]; ok {
		n = a
	}
	return strings.NewReplacer("-", "", "_", "").Replace(n)
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
