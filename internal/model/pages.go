package model

// QuestionSet is the output of the question generation stage: customer
// questions grouped into fixed categories.
type QuestionSet struct {
	Categories map[string][]string `json:"categories"`
	Total      int                 `json:"total"`
}

// Flatten returns every question across all categories.
func (q QuestionSet) Flatten() []string {
	var out []string
	for _, qs := range q.Categories {
		out = append(out, qs...)
	}
	return out
}

// FAQEntry is one question/answer pair on an FAQ page.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQPage is the generated FAQ document for a product.
type FAQPage struct {
	ProductName string     `json:"productName"`
	Title       string     `json:"title"`
	Entries     []FAQEntry `json:"entries"`
}

// ProductPage is the generated marketing page for a product.
type ProductPage struct {
	ProductName string   `json:"productName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Benefits    []string `json:"benefits"`
	Usage       string   `json:"usage"`
	Ingredients []string `json:"ingredients"`
	Price       Price    `json:"price"`
}

// ComparisonRow is the per-product column of a comparison table.
type ComparisonRow struct {
	ProductName   string   `json:"productName"`
	Concentration string   `json:"concentration"`
	Benefits      []string `json:"benefits"`
	Price         Price    `json:"price"`
}

// ComparisonPage is the generated side-by-side comparison of two products.
type ComparisonPage struct {
	Title             string              `json:"title"`
	Products          []ComparisonRow     `json:"products"`
	CommonBenefits    []string            `json:"commonBenefits"`
	UniqueBenefits    map[string][]string `json:"uniqueBenefits"`
	CommonIngredients []string            `json:"commonIngredients"`
	PriceDifference   float64             `json:"priceDifference"`
	CheaperProduct    string              `json:"cheaperProduct"`
	Recommendation    string              `json:"recommendation"`
}
