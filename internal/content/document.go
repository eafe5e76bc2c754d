// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content models the JSON page documents stored in blobs. A
// Document keeps the original bytes and edits them in place with sjson, so
// any field a rewrite does not target stays byte-for-byte identical.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Layout is the page layout discriminator stored in the "layout" field.
type Layout string

const (
	LayoutHomepage   Layout = "homepage"
	LayoutContent    Layout = "content"
	LayoutIndex      Layout = "index"
	LayoutCollection Layout = "collection"
	LayoutFile       Layout = "file"
	LayoutLink       Layout = "link"
)

// SchemaVersion is written into every document created by this package.
const SchemaVersion = "0.1.0"

var (
	ErrInvalidJSON    = errors.New("content: invalid json")
	ErrNotObject      = errors.New("content: document is not an object")
	ErrContentMissing = errors.New("content: missing content array")
	ErrBlockIndex     = errors.New("content: block index out of range")
)

// Document is a parsed page document.
type Document struct {
	raw []byte
}

// Parse validates data as a page document. The content array must be
// present; block semantics are not checked.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotObject
	}
	if c := root.Get("content"); !c.Exists() || !c.IsArray() {
		return nil, ErrContentMissing
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Document{raw: raw}, nil
}

// MustParse is Parse for package-level templates and tests.
func MustParse(data []byte) *Document {
	d, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return d
}

// Bytes returns the document's JSON encoding.
func (d *Document) Bytes() []byte {
	return d.raw
}

// Equal reports whether both documents hold identical bytes.
func (d *Document) Equal(other *Document) bool {
	return bytes.Equal(d.raw, other.raw)
}

// Layout returns the page layout.
func (d *Document) Layout() Layout {
	return Layout(gjson.GetBytes(d.raw, "layout").String())
}

// Version returns the schema version recorded in the document.
func (d *Document) Version() string {
	return gjson.GetBytes(d.raw, "version").String()
}

// Title returns page.title, or "" when absent.
func (d *Document) Title() string {
	return gjson.GetBytes(d.raw, "page.title").String()
}

// Blocks returns the content blocks in document order.
func (d *Document) Blocks() []Block {
	arr := gjson.GetBytes(d.raw, "content").Array()
	blocks := make([]Block, 0, len(arr))
	for i, r := range arr {
		blocks = append(blocks, Block{
			Index: i,
			Type:  r.Get("type").String(),
			Raw:   json.RawMessage(r.Raw),
		})
	}
	return blocks
}

// LastBlock returns the final content block, if any.
func (d *Document) LastBlock() (Block, bool) {
	blocks := d.Blocks()
	if len(blocks) == 0 {
		return Block{}, false
	}
	return blocks[len(blocks)-1], true
}

// BlocksOfType returns the blocks whose type tag equals typ.
func (d *Document) BlocksOfType(typ string) []Block {
	var out []Block
	for _, b := range d.Blocks() {
		if b.Type == typ {
			out = append(out, b)
		}
	}
	return out
}

// SetBlockField returns a copy of the document with field set to value on
// the block at index. Other bytes are left untouched.
func (d *Document) SetBlockField(index int, field string, value any) (*Document, error) {
	if index < 0 || index >= len(d.Blocks()) {
		return nil, fmt.Errorf("%w: %d", ErrBlockIndex, index)
	}
	path := "content." + strconv.Itoa(index) + "." + field
	out, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return nil, fmt.Errorf("content set %s: %w", path, err)
	}
	return &Document{raw: out}, nil
}

// AppendBlock returns a copy of the document with block appended to the
// content array. block is marshalled with encoding/json.
func (d *Document) AppendBlock(block any) (*Document, error) {
	encoded, err := json.Marshal(block)
	if err != nil {
		return nil, fmt.Errorf("content marshal block: %w", err)
	}
	out, err := sjson.SetRawBytes(d.raw, "content.-1", encoded)
	if err != nil {
		return nil, fmt.Errorf("content append block: %w", err)
	}
	return &Document{raw: out}, nil
}

// FileMeta is the page metadata of file and link layouts.
type FileMeta struct {
	Title       string   `json:"title"`
	Ref         string   `json:"ref"`
	Date        string   `json:"date,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tagged      []string `json:"tagged,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FileMeta decodes the page object of a file or link document.
func (d *Document) FileMeta() (FileMeta, error) {
	var meta FileMeta
	page := gjson.GetBytes(d.raw, "page")
	if !page.IsObject() {
		return meta, fmt.Errorf("content: layout %q has no page object", d.Layout())
	}
	if err := json.Unmarshal([]byte(page.Raw), &meta); err != nil {
		return meta, fmt.Errorf("content decode page: %w", err)
	}
	return meta, nil
}
