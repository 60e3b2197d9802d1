package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/contentsmith/pipewright/internal/blocks"
	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a product content expert specializing in skincare.
Only use information provided in the prompt, never invent facts.
Return ONLY valid JSON, no markdown fences or extra text.`

// chatClient is the slice of the OpenAI client the generator needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI generates content through a chat completion API. Completion
// failures come back as transient faults so the retry layer can handle rate
// limits.
type OpenAI struct {
	client chatClient
	model  string
	logger *slog.Logger
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI builds a generator against the real OpenAI API.
func NewOpenAI(apiKey, model string, logger *slog.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fault.Configurationf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model, logger: logger}, nil
}

// complete sends one prompt and decodes the JSON reply into out.
func (g *OpenAI) complete(ctx context.Context, prompt string, out any) error {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fault.Transient(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return fault.Transientf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fault.Transient(fmt.Errorf("decode completion: %w", err))
	}
	return nil
}

func (g *OpenAI) Questions(ctx context.Context, p model.Product) (model.QuestionSet, error) {
	g.logger.Info("generating questions", "product", p.ProductName, "model", g.model)

	var sb strings.Builder
	sb.WriteString("Generate customer questions for this product, grouped by category.\n")
	for _, cat := range QuestionCategories {
		fmt.Fprintf(&sb, "- %s: exactly %d questions\n", cat.Name, cat.Count)
	}
	sb.WriteString(productFacts(p))
	sb.WriteString(`Return JSON: {"categories": {"informational": ["..."], "safety": ["..."], "usage": ["..."], "purchase": ["..."], "comparison": ["..."]}}`)

	var decoded struct {
		Categories map[string][]string `json:"categories"`
	}
	if err := g.complete(ctx, sb.String(), &decoded); err != nil {
		return model.QuestionSet{}, err
	}

	qs := model.QuestionSet{Categories: decoded.Categories}
	for _, v := range decoded.Categories {
		qs.Total += len(v)
	}
	return qs, nil
}

func (g *OpenAI) FAQ(ctx context.Context, p model.Product, qs model.QuestionSet) (model.FAQPage, error) {
	g.logger.Info("generating faq", "product", p.ProductName, "questions", qs.Total)

	questionsJSON, err := json.Marshal(qs.Flatten())
	if err != nil {
		return model.FAQPage{}, fmt.Errorf("encode questions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Answer each question in 1-2 sentences using only these facts.\n")
	sb.WriteString(productFacts(p))
	fmt.Fprintf(&sb, "Questions: %s\n", questionsJSON)
	sb.WriteString(`Return JSON: {"productName": "...", "title": "...", "entries": [{"question": "...", "answer": "..."}]}`)

	var page model.FAQPage
	if err := g.complete(ctx, sb.String(), &page); err != nil {
		return model.FAQPage{}, err
	}
	return page, nil
}

func (g *OpenAI) ProductPage(ctx context.Context, p model.Product, ben blocks.Benefits, usage blocks.Usage, ing blocks.Ingredients) (model.ProductPage, error) {
	g.logger.Info("generating product page", "product", p.ProductName)

	var sb strings.Builder
	sb.WriteString("Write a product page from these facts.\n")
	sb.WriteString(productFacts(p))
	fmt.Fprintf(&sb, "Primary benefit: %s (of %d)\n", ben.PrimaryBenefit, ben.BenefitCount)
	fmt.Fprintf(&sb, "Primary active: %s (%s)\n", ing.PrimaryActive, ing.Concentration)
	fmt.Fprintf(&sb, "Usage: %s (frequency: %s, quantity: %s)\n", usage.UsageInstructions, usage.Frequency, usage.Quantity)
	sb.WriteString(`Return JSON: {"productName": "...", "title": "...", "description": "...", "benefits": ["..."], "usage": "...", "ingredients": ["..."], "price": {"amount": 0, "currency": "..."}}`)

	var page model.ProductPage
	if err := g.complete(ctx, sb.String(), &page); err != nil {
		return model.ProductPage{}, err
	}
	return page, nil
}

func (g *OpenAI) Comparison(ctx context.Context, a, b model.Product, cmp blocks.Comparison) (model.ComparisonPage, error) {
	g.logger.Info("generating comparison", "product_a", a.ProductName, "product_b", b.ProductName)

	cmpJSON, err := json.Marshal(cmp)
	if err != nil {
		return model.ComparisonPage{}, fmt.Errorf("encode comparison: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Write a side-by-side comparison page for these two products.\n")
	sb.WriteString("Product A:\n" + productFacts(a))
	sb.WriteString("Product B:\n" + productFacts(b))
	fmt.Fprintf(&sb, "Computed comparison: %s\n", cmpJSON)
	sb.WriteString(`Return JSON: {"title": "...", "products": [{"productName": "...", "concentration": "...", "benefits": ["..."], "price": {"amount": 0, "currency": "..."}}], "commonBenefits": ["..."], "uniqueBenefits": {"<product>": ["..."]}, "commonIngredients": ["..."], "priceDifference": 0, "cheaperProduct": "...", "recommendation": "..."}`)

	var page model.ComparisonPage
	if err := g.complete(ctx, sb.String(), &page); err != nil {
		return model.ComparisonPage{}, err
	}
	return page, nil
}

func productFacts(p model.Product) string {
	return fmt.Sprintf(`Product Name: %s
Concentration: %s
Key Ingredients: %s
Benefits: %s
Skin Types: %s
How to Use: %s
Side Effects: %s
Price: %.0f %s
`,
		p.ProductName, p.Concentration,
		strings.Join(p.KeyIngredients, ", "),
		strings.Join(p.Benefits, ", "),
		strings.Join(p.SkinType, ", "),
		p.HowToUse, p.SideEffects,
		p.Price.Amount, p.Price.Currency)
}
