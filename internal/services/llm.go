package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/matching"
)

// maxPromptItems caps how many pantry items are listed in a prompt
const maxPromptItems = 60

var errEmptyCompletion = errors.New("no response from OpenAI API")

// ChatCompleter is the part of *openai.Client the services use
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClient sends JSON-answer prompts to an OpenAI compatible API
type LLMClient struct {
	chat    ChatCompleter
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMClient creates a client. apiBase may point at any OpenAI compatible endpoint.
func NewLLMClient(apiKey, apiBase, model string, timeout time.Duration, logger *zap.Logger) *LLMClient {
	config := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		config.BaseURL = apiBase
	}
	return NewLLMClientWithChat(openai.NewClientWithConfig(config), model, timeout, logger)
}

// NewLLMClientWithChat wraps an existing completer
func NewLLMClientWithChat(chat ChatCompleter, model string, timeout time.Duration, logger *zap.Logger) *LLMClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMClient{
		chat:    chat,
		model:   model,
		timeout: timeout,
		logger:  logger.Named("llm"),
	}
}

// completeJSON runs one chat completion and decodes its JSON answer into out
func (c *LLMClient) completeJSON(ctx context.Context, system, prompt string, temperature float32, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errEmptyCompletion
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)
	c.logger.Debug("completion received", zap.String("model", c.model), zap.String("content", truncateString(content, 200)))

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse OpenAI response: %w", err)
	}
	return nil
}

// LLMSuggester asks the model for a substitute from the user's pantry.
// Any failure falls back to the built-in substitution table.
type LLMSuggester struct {
	client   *LLMClient
	fallback matching.Suggester
	logger   *zap.Logger
}

func NewLLMSuggester(client *LLMClient, fallback matching.Suggester) *LLMSuggester {
	if fallback == nil {
		fallback = matching.NewStaticSuggester()
	}
	return &LLMSuggester{
		client:   client,
		fallback: fallback,
		logger:   client.logger.Named("suggester"),
	}
}

type llmSubstitution struct {
	Suggestion       string `json:"suggestion"`
	SubstituteItemID string `json:"substitute_item_id"`
}

// Suggest implements matching.Suggester
func (s *LLMSuggester) Suggest(ctx context.Context, ingredientName string, inventory []matching.InventoryItemForMatching, matched *matching.ItemRef) matching.Substitution {
	candidates := pantryCandidates(ingredientName, inventory, matched)

	var names strings.Builder
	for i, item := range candidates {
		if i == maxPromptItems {
			break
		}
		fmt.Fprintf(&names, "- id=%s: %s\n", item.ID, item.Name)
	}

	prompt := fmt.Sprintf(`A recipe needs "%s" but the pantry does not have enough of it.
Pantry items that could be used instead:
%s
Suggest the best substitute. Prefer an item from the list; if none fits, describe a common substitute.
Return JSON: {"suggestion": "one sentence", "substitute_item_id": "id from the list or empty"}
Only return the JSON, no other text.`, ingredientName, names.String())

	var answer llmSubstitution
	err := s.client.completeJSON(ctx, "You are a cooking expert who suggests practical ingredient substitutions.", prompt, 0.3, &answer)
	if err != nil || strings.TrimSpace(answer.Suggestion) == "" {
		s.logger.Warn("falling back to static substitution", zap.String("ingredient", ingredientName), zap.Error(err))
		return s.fallback.Suggest(ctx, ingredientName, inventory, matched)
	}

	sub := matching.Substitution{Suggestion: strings.TrimSpace(answer.Suggestion)}
	for i := range candidates {
		if candidates[i].ID == answer.SubstituteItemID {
			item := candidates[i]
			sub.SubstituteItem = &matching.ItemRef{ID: item.ID, Name: item.Name, Quantity: item.Quantity, Unit: item.Unit}
			break
		}
	}
	sub.Available = sub.SubstituteItem != nil || matching.RuleFor(ingredientName) != ""

	return sub
}

// pantryCandidates lists available items other than the ingredient and its partial match
func pantryCandidates(ingredientName string, inventory []matching.InventoryItemForMatching, matched *matching.ItemRef) []matching.InventoryItemForMatching {
	name := matching.Normalize(ingredientName)
	out := make([]matching.InventoryItemForMatching, 0, len(inventory))
	for _, item := range inventory {
		if !item.IsAvailable || matching.Normalize(item.Name) == name {
			continue
		}
		if matched != nil && item.ID == matched.ID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// RecipeExtractor turns free recipe text into structured ingredients
type RecipeExtractor struct {
	client *LLMClient
}

func NewRecipeExtractor(client *LLMClient) *RecipeExtractor {
	return &RecipeExtractor{client: client}
}

// Extract returns the ingredient list of a recipe. Entries without a name are dropped.
func (e *RecipeExtractor) Extract(ctx context.Context, text string) ([]matching.RecipeIngredient, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("recipe text is empty")
	}

	prompt := fmt.Sprintf(`Extract the ingredients from this recipe.
Return a JSON array: [{"name": "ingredient", "quantity": 200, "unit": "g"}]
Use null for a missing quantity or unit. Keep ingredient names in the recipe's language.
Only return the JSON array, no other text.

Recipe:
%s`, text)

	var raw []matching.RecipeIngredient
	if err := e.client.completeJSON(ctx, "You are a cooking assistant that extracts structured ingredient lists.", prompt, 0.2, &raw); err != nil {
		return nil, err
	}

	out := make([]matching.RecipeIngredient, 0, len(raw))
	for _, ing := range raw {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		if ing.Quantity != nil && *ing.Quantity <= 0 {
			ing.Quantity = nil
		}
		if ing.Unit != nil && strings.TrimSpace(*ing.Unit) == "" {
			ing.Unit = nil
		}
		out = append(out, ing)
	}

	e.client.logger.Info("extracted recipe ingredients", zap.Int("count", len(out)))
	return out, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// cleanJSONResponse strips markdown code fences the model sometimes adds
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
