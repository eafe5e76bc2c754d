// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"encoding/json"
	"fmt"
)

// Block type tags.
const (
	BlockProse         = "prose"
	BlockChildrenPages = "childrenpages"
	BlockCallout       = "callout"
	BlockImage         = "image"
)

// Block is one entry of a document's content array. Raw holds the exact
// bytes of the block as stored.
type Block struct {
	Index int
	Type  string
	Raw   json.RawMessage
}

// Variant is implemented by every typed block. Callers match on the
// concrete type with a type switch.
type Variant interface {
	BlockType() string
}

// ProseBlock is rich text. Its inner nodes are not interpreted here.
type ProseBlock struct {
	Type    string            `json:"type"`
	Content []json.RawMessage `json:"content,omitempty"`
}

// ChildrenPagesBlock renders the listing of a container's children.
// ChildrenPagesOrdering is nil when the field is absent.
type ChildrenPagesBlock struct {
	Type                  string    `json:"type"`
	Variant               string    `json:"variant,omitempty"`
	ShowSummary           *bool     `json:"showSummary,omitempty"`
	ShowThumbnail         *bool     `json:"showThumbnail,omitempty"`
	ChildrenPagesOrdering *[]string `json:"childrenPagesOrdering,omitempty"`
}

// CalloutBlock is a highlighted box of prose.
type CalloutBlock struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ImageBlock references an image asset.
type ImageBlock struct {
	Type string `json:"type"`
	Src  string `json:"src"`
	Alt  string `json:"alt,omitempty"`
}

// UnknownBlock carries block types this package has no struct for.
type UnknownBlock struct {
	Type string
	Raw  json.RawMessage
}

func (b ProseBlock) BlockType() string         { return BlockProse }
func (b ChildrenPagesBlock) BlockType() string { return BlockChildrenPages }
func (b CalloutBlock) BlockType() string       { return BlockCallout }
func (b ImageBlock) BlockType() string         { return BlockImage }
func (b UnknownBlock) BlockType() string       { return b.Type }

// Decode returns the typed variant for the block's type tag.
func (b Block) Decode() (Variant, error) {
	var v Variant
	var err error
	switch b.Type {
	case BlockProse:
		var p ProseBlock
		err = json.Unmarshal(b.Raw, &p)
		v = p
	case BlockChildrenPages:
		var c ChildrenPagesBlock
		err = json.Unmarshal(b.Raw, &c)
		v = c
	case BlockCallout:
		var c CalloutBlock
		err = json.Unmarshal(b.Raw, &c)
		v = c
	case BlockImage:
		var i ImageBlock
		err = json.Unmarshal(b.Raw, &i)
		v = i
	default:
		v = UnknownBlock{Type: b.Type, Raw: b.Raw}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s block %d: %w", b.Type, b.Index, err)
	}
	return v, nil
}
