package model

// Price is a normalized amount + currency pair.
type Price struct {
	Amount   float64 `yaml:"amount" json:"amount"`
	Currency string  `yaml:"currency" json:"currency"`
}

// RawProduct is product data exactly as loaded from a data file, before the
// parse stage validates and normalizes it.
type RawProduct struct {
	ProductName    string   `yaml:"productName" json:"productName"`
	Concentration  string   `yaml:"concentration" json:"concentration"`
	SkinType       []string `yaml:"skinType" json:"skinType"`
	KeyIngredients []string `yaml:"keyIngredients" json:"keyIngredients"`
	Benefits       []string `yaml:"benefits" json:"benefits"`
	HowToUse       string   `yaml:"howToUse" json:"howToUse"`
	SideEffects    string   `yaml:"sideEffects" json:"sideEffects"`
	Price          Price    `yaml:"price" json:"price"`
}

// Product is the validated internal product model every downstream stage
// consumes.
type Product struct {
	ProductName    string   `json:"productName"`
	Concentration  string   `json:"concentration"`
	SkinType       []string `json:"skinType"`
	KeyIngredients []string `json:"keyIngredients"`
	Benefits       []string `json:"benefits"`
	HowToUse       string   `json:"howToUse"`
	SideEffects    string   `json:"sideEffects"`
	Price          Price    `json:"price"`
}
