// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import "encoding/json"

type pageMeta struct {
	Title string `json:"title"`
}

type document struct {
	Version string `json:"version"`
	Layout  Layout `json:"layout"`
	Page    any    `json:"page"`
	Content []any  `json:"content"`
}

func build(layout Layout, page any, blocks ...any) *Document {
	if blocks == nil {
		blocks = []any{}
	}
	data, err := json.Marshal(document{Version: SchemaVersion, Layout: layout, Page: page, Content: blocks})
	if err != nil {
		panic(err)
	}
	return MustParse(data)
}

// DefaultChildrenPagesBlock is the listing block placed on new index pages.
func DefaultChildrenPagesBlock() ChildrenPagesBlock {
	yes, no := true, false
	ordering := []string{}
	return ChildrenPagesBlock{
		Type:                  BlockChildrenPages,
		Variant:               "rows",
		ShowSummary:           &yes,
		ShowThumbnail:         &no,
		ChildrenPagesOrdering: &ordering,
	}
}

// NewRootPage returns the initial homepage of a new site.
func NewRootPage(siteName string) *Document {
	return build(LayoutHomepage, pageMeta{Title: siteName})
}

// NewFolderIndexPage returns the default index page of a folder.
func NewFolderIndexPage(title string) *Document {
	return build(LayoutIndex, pageMeta{Title: title}, DefaultChildrenPagesBlock())
}

// NewCollectionIndexPage returns the default index page of a collection.
func NewCollectionIndexPage(title string) *Document {
	return build(LayoutCollection, struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	}{Title: title, Subtitle: ""})
}

// NewContentPage returns an empty content page.
func NewContentPage(title string) *Document {
	return build(LayoutContent, pageMeta{Title: title})
}
