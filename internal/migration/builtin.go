// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package migration

import (
	"context"
	"fmt"
	"sort"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// Names of the built-in migrations.
const (
	NameAddChildrenPagesOrdering = "add-children-pages-ordering"
	NameAppendChildrenPagesBlock = "append-children-pages-block"
	NameBackfillFolderIndexPages = "backfill-folder-index-pages"
)

// Builtins returns the migrations shipped with the binary, sorted by name.
func Builtins() []Migration {
	all := []Migration{
		AddChildrenPagesOrdering(),
		AppendChildrenPagesBlock(),
		BackfillFolderIndexPages(),
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Lookup finds a built-in migration by name.
func Lookup(name string) (Migration, bool) {
	for _, m := range Builtins() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

var indexPages = store.CandidateFilter{
	Types:  []models.ResourceType{models.ResourceTypeIndexPage},
	Layout: content.LayoutIndex,
}

// AddChildrenPagesOrdering gives the trailing childrenpages block of index
// pages an empty childrenPagesOrdering when the field is missing.
func AddChildrenPagesOrdering() *ContentMigration {
	return NewContentMigration(
		NameAddChildrenPagesOrdering,
		"Add an empty childrenPagesOrdering to the last childrenpages block of index pages",
		indexPages,
		addChildrenPagesOrdering,
	)
}

func addChildrenPagesOrdering(doc *content.Document) (*content.Document, error) {
	last, ok := doc.LastBlock()
	if !ok {
		return nil, Skip("no content blocks")
	}
	variant, err := last.Decode()
	if err != nil {
		return nil, Skip("last block does not decode: %v", err)
	}

	switch block := variant.(type) {
	case content.ChildrenPagesBlock:
		if block.ChildrenPagesOrdering != nil {
			return doc, nil
		}
		return doc.SetBlockField(last.Index, "childrenPagesOrdering", []string{})
	default:
		return nil, Skip("last block is %q, not %q", variant.BlockType(), content.BlockChildrenPages)
	}
}

// AppendChildrenPagesBlock appends a default childrenpages block to index
// pages whose last block is something else.
func AppendChildrenPagesBlock() *ContentMigration {
	return NewContentMigration(
		NameAppendChildrenPagesBlock,
		"Append a default childrenpages block to index pages that do not end with one",
		indexPages,
		appendChildrenPagesBlock,
	)
}

func appendChildrenPagesBlock(doc *content.Document) (*content.Document, error) {
	if last, ok := doc.LastBlock(); ok && last.Type == content.BlockChildrenPages {
		return doc, nil
	}
	return doc.AppendBlock(content.DefaultChildrenPagesBlock())
}

// folderIndexBackfill creates the missing IndexPage of every folder.
type folderIndexBackfill struct{}

// BackfillFolderIndexPages persists a default index page under every
// folder that only has a synthesized listing. The new page is a draft; no
// version is created.
func BackfillFolderIndexPages() Migration {
	return folderIndexBackfill{}
}

func (folderIndexBackfill) Name() string { return NameBackfillFolderIndexPages }

func (folderIndexBackfill) Description() string {
	return "Create the default index page of folders that have none"
}

func (folderIndexBackfill) Filter() store.CandidateFilter {
	return store.CandidateFilter{Types: []models.ResourceType{models.ResourceTypeFolder}}
}

func (folderIndexBackfill) Apply(ctx context.Context, src Source, c store.Candidate, apply bool) Result {
	res := Result{ResourceID: c.Resource.ID}

	if c.Resource.Type != models.ResourceTypeFolder {
		return skipped(res, fmt.Sprintf("type %s is not a folder", c.Resource.Type))
	}
	state, _, err := src.IndexPageState(ctx, c.Resource.ID)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if state == store.IndexPersisted {
		return skipped(res, "index page exists")
	}

	res.Outcome = OutcomeMigrated
	if !apply {
		res.Reason = "dry run"
		return res
	}

	index, err := src.CreateIndexPage(ctx, &c.Resource)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Reason = "created index page " + index.ID.String()
	return res
}
