package interpreter

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"qrganizer/internal/inventory"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const systemPrompt = `You are an assistant that converts user commands about items/spaces into structured JSON.

We have items and spaces. Spaces can be nested inside other spaces. The user says things like:
"Move the hammer to the garage"
"Where is my screwdriver?"
"Create a new space named 'Attic'"
"Create a space called 'Top Shelf' inside 'Garage'"
"Move the space 'Shelf' into 'Basement'"
"Delete the item named 'Broken toy'"
"Add a new item named 'laptop charger' to 'Bedroom Shelf'"

Reply ONLY with valid JSON in this shape:
{
  "action": "...",
  "item_name": "...",
  "space_name": "...",
  "extra_details": "..."
}
Where "action" is one of:
["create_item", "move_item", "delete_item", "find_item", "create_space", "create_nested_space", "move_space", "delete_space", "unknown"]

For "create_nested_space" and "move_space", put the name of the parent space in "extra_details".
Use null for fields that do not apply.
If uncertain, set action to "unknown".
No extra text outside the JSON.`

// generator is the part of the genai client used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini interprets commands with a Gemini model in JSON response mode.
type Gemini struct {
	models generator
	model  string
	logger inventory.Logger
}

var _ Interpreter = (*Gemini)(nil)

// NewGemini creates a Gemini interpreter using apiKey.
func NewGemini(ctx context.Context, apiKey, model string, logger inventory.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(models generator, model string, logger inventory.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = inventory.NewNopLogger()
	}
	return &Gemini{models: models, model: model, logger: logger}
}

func (g *Gemini) Interpret(ctx context.Context, text string) (Intent, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text("User says: "+text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.3),
	})
	if err != nil {
		return Intent{}, fmt.Errorf("generating content: %w", err)
	}

	raw := resp.Text()
	g.logger.Debug("interpreter raw output", "model", g.model, "output", raw)
	return ParseIntent(raw), nil
}
