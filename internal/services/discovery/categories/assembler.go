package categories

import (
	"fmt"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

// Assembler turns a resolved payload into a live list.
type Assembler struct {
	loader domain.BeforeLoader
}

// NewAssembler creates an assembler binding loader as each list's
// load-before operation.
func NewAssembler(loader domain.BeforeLoader) *Assembler {
	return &Assembler{loader: loader}
}

// Assemble builds a list from payload. It fails with ErrMalformedPayload when
// the payload has no category_list section.
func (a *Assembler) Assemble(payload domain.Payload, merge domain.MergeContext) (*domain.CategoryList, error) {
	section, err := domain.RequireCategoryList(payload)
	if err != nil {
		return nil, fmt.Errorf("assemble category list: %w", err)
	}
	return domain.NewCategoryList(domain.ListInput{
		Categories:        domain.CategoriesFrom(payload),
		Topics:            domain.TopicsFrom(payload),
		CanCreateCategory: section.CanCreateCategory,
		CanCreateTopic:    section.CanCreateTopic,
		Loader:            a.loader,
		Merge:             merge,
	}), nil
}
