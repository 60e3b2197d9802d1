// Package blocks holds the deterministic content transforms of the pipeline.
// Every function here is pure: same product in, same structure out, no I/O.
package blocks

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/contentsmith/pipewright/internal/model"
)

// Benefits is the structured view of a product's benefit list.
type Benefits struct {
	BenefitList    []string `json:"benefitList"`
	BenefitCount   int      `json:"benefitCount"`
	PrimaryBenefit string   `json:"primaryBenefit,omitempty"`
}

// ProcessBenefits normalizes the benefit list; the first entry is treated as
// the primary benefit.
func ProcessBenefits(p model.Product) Benefits {
	if len(p.Benefits) == 0 {
		return Benefits{BenefitList: []string{}}
	}
	return Benefits{
		BenefitList:    append([]string(nil), p.Benefits...),
		BenefitCount:   len(p.Benefits),
		PrimaryBenefit: p.Benefits[0],
	}
}

// Usage is the structured view of a product's usage instructions.
type Usage struct {
	UsageInstructions string `json:"usageInstructions"`
	Frequency         string `json:"frequency,omitempty"`
	Quantity          string `json:"quantity,omitempty"`
	Timing            string `json:"timing,omitempty"`
}

var (
	quantityRe = regexp.MustCompile(`(?i)(\d+[–-]\d+\s+drops|\d+\s+drops)`)
	timingRe   = regexp.MustCompile(`(?i)(before|after)\s+(\w+)`)
)

// ProcessUsage extracts quantity, frequency and timing hints from the
// free-text howToUse field.
func ProcessUsage(p model.Product) Usage {
	if p.HowToUse == "" {
		return Usage{}
	}
	u := Usage{UsageInstructions: p.HowToUse}

	if m := quantityRe.FindStringSubmatch(p.HowToUse); m != nil {
		u.Quantity = m[1]
	}

	lower := strings.ToLower(p.HowToUse)
	switch {
	case strings.Contains(lower, "morning and evening"):
		u.Frequency = "morning and evening"
	case strings.Contains(lower, "morning"):
		u.Frequency = "morning"
	case strings.Contains(lower, "evening"):
		u.Frequency = "evening"
	case strings.Contains(lower, "night"):
		u.Frequency = "night"
	}

	if m := timingRe.FindStringSubmatch(p.HowToUse); m != nil {
		u.Timing = strings.ToLower(m[1]) + " " + m[2]
	}
	return u
}

// Ingredients is the structured view of a product's active ingredients.
type Ingredients struct {
	IngredientList  []string `json:"ingredientList"`
	IngredientCount int      `json:"ingredientCount"`
	PrimaryActive   string   `json:"primaryActive,omitempty"`
	Concentration   string   `json:"concentration,omitempty"`
}

var (
	concentrationRe = regexp.MustCompile(`(\d+(?:\.\d+)?%)`)
	activeNameRe    = regexp.MustCompile(`\d+(?:\.\d+)?%\s+(.+)`)
)

// ProcessIngredients structures the ingredient list and pulls the percentage
// out of the concentration string. The primary active is the first listed
// ingredient, falling back to the name after the percentage ("10% Vitamin C"
// yields "Vitamin C").
func ProcessIngredients(p model.Product) Ingredients {
	out := Ingredients{
		IngredientList:  append([]string{}, p.KeyIngredients...),
		IngredientCount: len(p.KeyIngredients),
	}
	if m := concentrationRe.FindStringSubmatch(p.Concentration); m != nil {
		out.Concentration = m[1]
	}
	if len(p.KeyIngredients) > 0 {
		out.PrimaryActive = p.KeyIngredients[0]
	} else if m := activeNameRe.FindStringSubmatch(p.Concentration); m != nil {
		out.PrimaryActive = m[1]
	}
	return out
}

// Comparison is the structured pairwise comparison of two products.
type Comparison struct {
	CommonIngredients []string `json:"commonIngredients"`
	UniqueToProductA  []string `json:"uniqueToProductA"`
	UniqueToProductB  []string `json:"uniqueToProductB"`
	CommonBenefits    []string `json:"commonBenefits"`
	UniqueBenefitsA   []string `json:"uniqueBenefitsA"`
	UniqueBenefitsB   []string `json:"uniqueBenefitsB"`
	PriceDifference   float64  `json:"priceDifference"`
	CheaperProduct    string   `json:"cheaperProduct"`
}

// CompareProducts intersects ingredients and benefits of two products and
// compares their prices. All lists come back sorted so the output is stable
// regardless of input order.
func CompareProducts(a, b model.Product) Comparison {
	commonIng, onlyA, onlyB := intersect(a.KeyIngredients, b.KeyIngredients)
	commonBen, benA, benB := intersect(a.Benefits, b.Benefits)

	cheaper := "equal"
	if a.Price.Amount < b.Price.Amount {
		cheaper = "productA"
	} else if b.Price.Amount < a.Price.Amount {
		cheaper = "productB"
	}

	return Comparison{
		CommonIngredients: commonIng,
		UniqueToProductA:  onlyA,
		UniqueToProductB:  onlyB,
		CommonBenefits:    commonBen,
		UniqueBenefitsA:   benA,
		UniqueBenefitsB:   benB,
		PriceDifference:   math.Abs(a.Price.Amount - b.Price.Amount),
		CheaperProduct:    cheaper,
	}
}

// intersect splits two string sets into common, only-in-a and only-in-b,
// each sorted.
func intersect(a, b []string) (common, onlyA, onlyB []string) {
	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}

	common, onlyA, onlyB = []string{}, []string{}, []string{}
	for s := range setA {
		if setB[s] {
			common = append(common, s)
		} else {
			onlyA = append(onlyA, s)
		}
	}
	for s := range setB {
		if !setA[s] {
			onlyB = append(onlyB, s)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return common, onlyA, onlyB
}
