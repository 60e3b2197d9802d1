package generate

import (
	"fmt"
	"strings"

	"github.com/contentsmith/pipewright/internal/model"
)

// Validators return a list of violations rather than an error: an empty list
// means the content is acceptable, a non-empty list means the generator
// should try again.

// ValidateQuestions checks a generated question set.
func ValidateQuestions(qs model.QuestionSet) []string {
	var violations []string
	total := 0
	for _, questions := range qs.Categories {
		total += len(questions)
	}
	if total < 3 {
		violations = append(violations, fmt.Sprintf("too few questions generated: %d (expected 3+)", total))
	}
	for _, cat := range QuestionCategories {
		for i, q := range qs.Categories[cat.Name] {
			if strings.TrimSpace(q) == "" {
				violations = append(violations, fmt.Sprintf("category %q question %d is empty", cat.Name, i))
			}
		}
	}
	return violations
}

// ValidateFAQ checks a generated FAQ page.
func ValidateFAQ(page model.FAQPage) []string {
	var violations []string
	if page.ProductName == "" {
		violations = append(violations, "missing productName")
	}
	if len(page.Entries) < 1 {
		violations = append(violations, "no FAQ entries generated")
	}
	for i, e := range page.Entries {
		if strings.TrimSpace(e.Question) == "" {
			violations = append(violations, fmt.Sprintf("entry %d missing question", i))
		}
		if strings.TrimSpace(e.Answer) == "" {
			violations = append(violations, fmt.Sprintf("entry %d missing answer", i))
		}
	}
	return violations
}

// ValidateProductPage checks a generated product page.
func ValidateProductPage(page model.ProductPage) []string {
	var violations []string
	if page.ProductName == "" {
		violations = append(violations, "missing productName")
	}
	if len(page.Benefits) == 0 {
		violations = append(violations, "missing benefits")
	}
	if page.Price.Amount <= 0 {
		violations = append(violations, "missing price")
	}
	return violations
}

// ValidateComparison checks a generated comparison page.
func ValidateComparison(page model.ComparisonPage) []string {
	var violations []string
	if len(page.Products) != 2 {
		violations = append(violations, fmt.Sprintf("comparison covers %d products (expected 2)", len(page.Products)))
	}
	for i, row := range page.Products {
		if row.ProductName == "" {
			violations = append(violations, fmt.Sprintf("product %d missing productName", i))
		}
	}
	if page.CheaperProduct == "" {
		violations = append(violations, "missing cheaperProduct verdict")
	}
	return violations
}
