// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package extract turns asset bytes into the plain text pushed to the
// search index.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"
)

// MaxChars caps the extracted text; the search index rejects larger
// documents.
const MaxChars = 1 << 20

// ErrUnsupported is returned for content types with no extractor.
var ErrUnsupported = errors.New("extract: unsupported content type")

// ErrEmpty is returned when a document yields no text at all.
var ErrEmpty = errors.New("extract: no text found")

// Media types Text understands.
const (
	TypePDF      = "application/pdf"
	TypeHTML     = "text/html"
	TypeMarkdown = "text/markdown"
	TypePlain    = "text/plain"
)

var extensionTypes = map[string]string{
	".pdf":      TypePDF,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".txt":      TypePlain,
	".csv":      TypePlain,
}

// Text extracts searchable text from data. contentType wins when it names
// a supported type; otherwise the file extension of name is used, and
// finally the bytes are sniffed. Whitespace is collapsed.
func Text(contentType, name string, data []byte) (string, error) {
	mediaType := DetectType(contentType, name, data)

	var (
		text string
		err  error
	)
	switch mediaType {
	case TypePDF:
		text, err = pdfText(data)
	case TypeHTML:
		text, err = htmlText(data)
	case TypeMarkdown:
		text, err = markdownText(data)
	case TypePlain:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("extract %s: invalid utf-8", name)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q (%s)", ErrUnsupported, mediaType, name)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", name, err)
	}

	text = normalize(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return text, nil
}

// DetectType resolves the media type of an asset.
func DetectType(contentType, name string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if supported(mt) {
			return mt
		}
	}
	if mt, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if sniffed == "" {
		sniffed = "application/octet-stream"
	}
	return sniffed
}

func supported(mt string) bool {
	switch mt {
	case TypePDF, TypeHTML, TypeMarkdown, TypePlain:
		return true
	}
	return false
}

// normalize collapses runs of whitespace and truncates to MaxChars on a
// rune boundary.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= MaxChars {
		return s
	}
	cut := MaxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func writeSep(buf *bytes.Buffer) {
	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}
}
