// Package generate produces the non-deterministic content of the pipeline:
// question sets, FAQ pages, product pages and comparison pages. Two
// implementations exist, one backed by a chat completion API and one fully
// offline. Both return the same model types so the rest of the pipeline does
// not care which is wired in.
package generate

import (
	"context"

	"github.com/contentsmith/pipewright/internal/blocks"
	"github.com/contentsmith/pipewright/internal/model"
)

// QuestionCategories are the fixed categories a question set is grouped
// into, with the target number of questions per category.
var QuestionCategories = []struct {
	Name  string
	Count int
}{
	{"informational", 8},
	{"safety", 4},
	{"usage", 4},
	{"purchase", 3},
	{"comparison", 2},
}

// Generator produces pipeline content. Implementations may call out to an
// LLM, so every method takes a context and can fail.
type Generator interface {
	Questions(ctx context.Context, p model.Product) (model.QuestionSet, error)
	FAQ(ctx context.Context, p model.Product, qs model.QuestionSet) (model.FAQPage, error)
	ProductPage(ctx context.Context, p model.Product, ben blocks.Benefits, usage blocks.Usage, ing blocks.Ingredients) (model.ProductPage, error)
	Comparison(ctx context.Context, a, b model.Product, cmp blocks.Comparison) (model.ComparisonPage, error)
}
