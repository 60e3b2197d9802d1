package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/contentsmith/pipewright/internal/blocks"
	"github.com/contentsmith/pipewright/internal/model"
)

// Static is a deterministic generator built entirely from the product data.
// It backs offline runs and serves as the fallback content source when
// validated generation is exhausted.
type Static struct{}

var _ Generator = Static{}

func (Static) Questions(_ context.Context, p model.Product) (model.QuestionSet, error) {
	name := p.ProductName
	cats := map[string][]string{
		"informational": {
			fmt.Sprintf("What does %s do?", name),
			fmt.Sprintf("What are the key ingredients in %s?", name),
			fmt.Sprintf("How does %s work on the skin?", name),
			fmt.Sprintf("What concentration of actives does %s contain?", name),
			fmt.Sprintf("Which skin types is %s suitable for?", name),
			fmt.Sprintf("What results can I expect from %s?", name),
			fmt.Sprintf("How long does it take for %s to show results?", name),
			fmt.Sprintf("Is %s fragrance free?", name),
		},
		"safety": {
			fmt.Sprintf("What are the side effects of %s?", name),
			fmt.Sprintf("Can %s cause irritation on sensitive skin?", name),
			fmt.Sprintf("Should I patch test %s before first use?", name),
			fmt.Sprintf("Can I use %s while pregnant?", name),
		},
		"usage": {
			fmt.Sprintf("How do I apply %s?", name),
			fmt.Sprintf("How often should I use %s?", name),
			fmt.Sprintf("How much of %s should I use per application?", name),
			fmt.Sprintf("Can I layer %s with other products?", name),
		},
		"purchase": {
			fmt.Sprintf("How much does %s cost?", name),
			fmt.Sprintf("Is %s good value for the price?", name),
			fmt.Sprintf("Where can I buy %s?", name),
		},
		"comparison": {
			fmt.Sprintf("How does %s compare to similar serums?", name),
			fmt.Sprintf("What makes %s different from alternatives?", name),
		},
	}
	total := 0
	for _, qs := range cats {
		total += len(qs)
	}
	return model.QuestionSet{Categories: cats, Total: total}, nil
}

func (Static) FAQ(_ context.Context, p model.Product, qs model.QuestionSet) (model.FAQPage, error) {
	page := model.FAQPage{
		ProductName: p.ProductName,
		Title:       fmt.Sprintf("%s: Frequently Asked Questions", p.ProductName),
	}
	answers := map[string]string{
		"informational": fmt.Sprintf("%s contains %s and is formulated at %s. Key benefits include %s.",
			p.ProductName, joinOr(p.KeyIngredients, "its active ingredients"), orText(p.Concentration, "its stated concentration"), joinOr(p.Benefits, "general skin care support")),
		"safety": fmt.Sprintf("Reported side effects: %s. Patch test before first use and discontinue if irritation persists.",
			orText(p.SideEffects, "none listed")),
		"usage": orText(p.HowToUse, fmt.Sprintf("Follow the directions on the %s packaging.", p.ProductName)),
		"purchase": fmt.Sprintf("%s is priced at %.0f %s.",
			p.ProductName, p.Price.Amount, orText(p.Price.Currency, "INR")),
		"comparison": fmt.Sprintf("%s stands out for %s at its price point.",
			p.ProductName, joinOr(p.Benefits, "its formulation")),
	}
	for _, cat := range QuestionCategories {
		answer := answers[cat.Name]
		for _, q := range qs.Categories[cat.Name] {
			page.Entries = append(page.Entries, model.FAQEntry{Question: q, Answer: answer})
		}
	}
	return page, nil
}

func (Static) ProductPage(_ context.Context, p model.Product, ben blocks.Benefits, usage blocks.Usage, ing blocks.Ingredients) (model.ProductPage, error) {
	desc := fmt.Sprintf("%s is a %s treatment built around %s, suited for %s skin. Best known for %s.",
		p.ProductName,
		orText(ing.Concentration, "targeted"),
		orText(ing.PrimaryActive, "proven actives"),
		joinOr(p.SkinType, "all"),
		strings.ToLower(orText(ben.PrimaryBenefit, "everyday care")))
	return model.ProductPage{
		ProductName: p.ProductName,
		Title:       fmt.Sprintf("%s | %s", p.ProductName, orText(ing.PrimaryActive, "Skin Care")),
		Description: desc,
		Benefits:    append([]string{}, ben.BenefitList...),
		Usage:       orText(usage.UsageInstructions, "Follow packaging directions."),
		Ingredients: append([]string{}, p.KeyIngredients...),
		Price:       p.Price,
	}, nil
}

func (Static) Comparison(_ context.Context, a, b model.Product, cmp blocks.Comparison) (model.ComparisonPage, error) {
	rec := fmt.Sprintf("Both products share %d benefits; choose %s if price matters most.",
		len(cmp.CommonBenefits), cheaperName(a, b, cmp.CheaperProduct))
	return model.ComparisonPage{
		Title: fmt.Sprintf("%s vs %s", a.ProductName, b.ProductName),
		Products: []model.ComparisonRow{
			{ProductName: a.ProductName, Concentration: a.Concentration, Benefits: a.Benefits, Price: a.Price},
			{ProductName: b.ProductName, Concentration: b.Concentration, Benefits: b.Benefits, Price: b.Price},
		},
		CommonBenefits: cmp.CommonBenefits,
		UniqueBenefits: map[string][]string{
			a.ProductName: cmp.UniqueBenefitsA,
			b.ProductName: cmp.UniqueBenefitsB,
		},
		CommonIngredients: cmp.CommonIngredients,
		PriceDifference:   cmp.PriceDifference,
		CheaperProduct:    cheaperName(a, b, cmp.CheaperProduct),
		Recommendation:    rec,
	}, nil
}

func cheaperName(a, b model.Product, cheaper string) string {
	switch cheaper {
	case "productA":
		return a.ProductName
	case "productB":
		return b.ProductName
	default:
		return "either"
	}
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
