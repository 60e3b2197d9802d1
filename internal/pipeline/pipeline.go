// Package pipeline declares the content generation pipeline: which stages
// exist, what they depend on, and how each one does its work. The engine
// package executes it.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contentsmith/pipewright/internal/blocks"
	"github.com/contentsmith/pipewright/internal/dag"
	"github.com/contentsmith/pipewright/internal/engine"
	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/generate"
	"github.com/contentsmith/pipewright/internal/loader"
	"github.com/contentsmith/pipewright/internal/model"
	"github.com/contentsmith/pipewright/internal/schema"
)

// Stage ids, also the checkpoint names a resume matches on.
const (
	StageParseProducts      dag.StageID = "parse_products"
	StageLogicBlocks        dag.StageID = "logic_blocks"
	StageGenerateQuestions  dag.StageID = "generate_questions"
	StageGenerateFAQ        dag.StageID = "generate_faq"
	StageGenerateProduct    dag.StageID = "generate_product"
	StageGenerateComparison dag.StageID = "generate_comparison"
	StageRenderOutputs      dag.StageID = "render_outputs"
)

// Keys under which stage outputs live in the run state.
const (
	keyProductA       = "product_a"
	keyProductB       = "product_b"
	keyBenefits       = "benefits_a"
	keyUsage          = "usage_a"
	keyIngredients    = "ingredients_a"
	keyComparison     = "comparison"
	keyQuestions      = "questions"
	keyFAQPage        = "faq_page"
	keyProductPage    = "product_page"
	keyComparisonPage = "comparison_page"
	keyOutputs        = engine.OutputsKey
)

// Output file names under the output directory.
const (
	OutputFAQ            = "faq.json"
	OutputProductPage    = "product_page.json"
	OutputComparisonPage = "comparison_page.json"
)

// Options wires the pipeline's collaborators.
type Options struct {
	// DataDir holds product_data.json and product_b_data.json (YAML
	// variants are accepted too).
	DataDir string
	// OutputDir receives the rendered page documents.
	OutputDir string
	// Generator produces the non-deterministic content.
	Generator generate.Generator
	// Schema validates rendered documents before they are written.
	Schema *schema.Validator
	// StageTimeout bounds each generator stage, zero means no limit.
	StageTimeout time.Duration
}

// Stages returns the full stage list in declaration order.
func Stages(opts Options) []engine.Stage {
	fallback := generate.Static{}

	return []engine.Stage{
		{
			ID:          StageParseProducts,
			Description: "load and normalize the product data files",
			Run: func(ctx context.Context, e *engine.Engine) error {
				return parseProducts(opts, e)
			},
		},
		{
			ID:           StageLogicBlocks,
			Dependencies: []dag.StageID{StageParseProducts},
			Description:  "run the deterministic content transforms",
			Run: func(ctx context.Context, e *engine.Engine) error {
				return logicBlocks(e)
			},
		},
		{
			ID:           StageGenerateQuestions,
			Dependencies: []dag.StageID{StageLogicBlocks},
			Description:  "generate categorized customer questions",
			Generator:    true,
			Timeout:      opts.StageTimeout,
			Run: func(ctx context.Context, e *engine.Engine) error {
				a, err := getData[model.Product](e, keyProductA)
				if err != nil {
					return err
				}
				qs, err := engine.Generate(ctx, e, StageGenerateQuestions,
					func(ctx context.Context) (model.QuestionSet, error) {
						return opts.Generator.Questions(ctx, a)
					},
					generate.ValidateQuestions,
					func() model.QuestionSet {
						qs, _ := fallback.Questions(context.Background(), a)
						return qs
					})
				if err != nil {
					return err
				}
				e.Logger().Info("questions generated", "total", qs.Total)
				return e.State().SetData(keyQuestions, qs)
			},
		},
		{
			ID:           StageGenerateFAQ,
			Dependencies: []dag.StageID{StageGenerateQuestions},
			Description:  "answer the generated questions as an FAQ page",
			Generator:    true,
			Timeout:      opts.StageTimeout,
			Run: func(ctx context.Context, e *engine.Engine) error {
				a, err := getData[model.Product](e, keyProductA)
				if err != nil {
					return err
				}
				qs, err := getData[model.QuestionSet](e, keyQuestions)
				if err != nil {
					return err
				}
				page, err := engine.Generate(ctx, e, StageGenerateFAQ,
					func(ctx context.Context) (model.FAQPage, error) {
						return opts.Generator.FAQ(ctx, a, qs)
					},
					generate.ValidateFAQ,
					func() model.FAQPage {
						page, _ := fallback.FAQ(context.Background(), a, qs)
						return page
					})
				if err != nil {
					return err
				}
				return e.State().SetData(keyFAQPage, page)
			},
		},
		{
			ID:           StageGenerateProduct,
			Dependencies: []dag.StageID{StageLogicBlocks},
			Description:  "write the product marketing page",
			Generator:    true,
			Timeout:      opts.StageTimeout,
			Run: func(ctx context.Context, e *engine.Engine) error {
				a, err := getData[model.Product](e, keyProductA)
				if err != nil {
					return err
				}
				ben, err := getData[blocks.Benefits](e, keyBenefits)
				if err != nil {
					return err
				}
				usage, err := getData[blocks.Usage](e, keyUsage)
				if err != nil {
					return err
				}
				ing, err := getData[blocks.Ingredients](e, keyIngredients)
				if err != nil {
					return err
				}
				page, err := engine.Generate(ctx, e, StageGenerateProduct,
					func(ctx context.Context) (model.ProductPage, error) {
						return opts.Generator.ProductPage(ctx, a, ben, usage, ing)
					},
					generate.ValidateProductPage,
					func() model.ProductPage {
						page, _ := fallback.ProductPage(context.Background(), a, ben, usage, ing)
						return page
					})
				if err != nil {
					return err
				}
				return e.State().SetData(keyProductPage, page)
			},
		},
		{
			ID:           StageGenerateComparison,
			Dependencies: []dag.StageID{StageLogicBlocks},
			Description:  "write the product comparison page",
			Generator:    true,
			Timeout:      opts.StageTimeout,
			Run: func(ctx context.Context, e *engine.Engine) error {
				a, err := getData[model.Product](e, keyProductA)
				if err != nil {
					return err
				}
				b, err := getData[model.Product](e, keyProductB)
				if err != nil {
					return err
				}
				cmp, err := getData[blocks.Comparison](e, keyComparison)
				if err != nil {
					return err
				}
				page, err := engine.Generate(ctx, e, StageGenerateComparison,
					func(ctx context.Context) (model.ComparisonPage, error) {
						return opts.Generator.Comparison(ctx, a, b, cmp)
					},
					generate.ValidateComparison,
					func() model.ComparisonPage {
						page, _ := fallback.Comparison(context.Background(), a, b, cmp)
						return page
					})
				if err != nil {
					return err
				}
				return e.State().SetData(keyComparisonPage, page)
			},
		},
		{
			ID:           StageRenderOutputs,
			Dependencies: []dag.StageID{StageGenerateFAQ, StageGenerateProduct, StageGenerateComparison},
			Description:  "schema-validate the pages and write the output files",
			Run: func(ctx context.Context, e *engine.Engine) error {
				return renderOutputs(opts, e)
			},
		},
	}
}

func parseProducts(opts Options, e *engine.Engine) error {
	a, err := loadProduct(opts.DataDir, "product_data")
	if err != nil {
		return err
	}
	b, err := loadProduct(opts.DataDir, "product_b_data")
	if err != nil {
		return err
	}
	e.Logger().Info("products parsed", "product_a", a.ProductName, "product_b", b.ProductName)

	if err := e.State().SetData(keyProductA, a); err != nil {
		return err
	}
	return e.State().SetData(keyProductB, b)
}

// loadProduct tries the JSON file first, then the YAML variants.
func loadProduct(dir, base string) (model.Product, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return loader.LoadProduct(path)
		}
	}
	return model.Product{}, fault.Configurationf("no %s.{json,yaml,yml} found in %s", base, dir)
}

func logicBlocks(e *engine.Engine) error {
	a, err := getData[model.Product](e, keyProductA)
	if err != nil {
		return err
	}
	b, err := getData[model.Product](e, keyProductB)
	if err != nil {
		return err
	}

	benefits := blocks.ProcessBenefits(a)
	usage := blocks.ProcessUsage(a)
	ingredients := blocks.ProcessIngredients(a)
	comparison := blocks.CompareProducts(a, b)

	e.Logger().Info("logic blocks processed",
		"benefits", benefits.BenefitCount,
		"ingredients", ingredients.IngredientCount,
		"price_difference", comparison.PriceDifference)

	for key, value := range map[string]any{
		keyBenefits:    benefits,
		keyUsage:       usage,
		keyIngredients: ingredients,
		keyComparison:  comparison,
	} {
		if err := e.State().SetData(key, value); err != nil {
			return err
		}
	}
	return nil
}

func renderOutputs(opts Options, e *engine.Engine) error {
	faq, err := getData[model.FAQPage](e, keyFAQPage)
	if err != nil {
		return err
	}
	product, err := getData[model.ProductPage](e, keyProductPage)
	if err != nil {
		return err
	}
	comparison, err := getData[model.ComparisonPage](e, keyComparisonPage)
	if err != nil {
		return err
	}

	if err := opts.Schema.ValidateFAQ(faq); err != nil {
		return err
	}
	if err := opts.Schema.ValidateProductPage(product); err != nil {
		return err
	}
	if err := opts.Schema.ValidateComparisonPage(comparison); err != nil {
		return err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := map[string]string{}
	for name, doc := range map[string]any{
		OutputFAQ:            faq,
		OutputProductPage:    product,
		OutputComparisonPage: comparison,
	} {
		path := filepath.Join(opts.OutputDir, name)
		if err := writeJSON(path, doc); err != nil {
			return err
		}
		e.Logger().Info("output written", "path", path)
		outputs[name] = path
	}
	return e.State().SetData(keyOutputs, outputs)
}

func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func getData[T any](e *engine.Engine, key string) (T, error) {
	var out T
	ok, err := e.State().GetData(key, &out)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, fault.Stagef("pipeline data %q not present, dependency stage did not run", key)
	}
	return out, nil
}
