// Package analysis provides AI-generated warrant health checks and
// market commentary.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"warrant-sniper/internal/models"
)

const (
	// unavailableText is shown when the AI service cannot be reached.
	// Service failures never propagate to the renderer.
	unavailableText = "AI 服務目前無法使用，請檢查 API Key 或稍後再試。"

	warrantSystemPrompt = "你是一位專業的台灣權證交易員。回答一律使用繁體中文，語氣專業、直接。"

	commentarySystemPrompt = "你是一位台股市場分析師。回答一律使用繁體中文，分點條列，" +
		"並在結尾以獨立行列出引用的資料來源網址（每行一個 URL）。"
)

// Client generates analyses with an OpenAI-compatible LLM.
type Client struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a new analysis client.
func NewClient(apiKey, model string, logger zerolog.Logger) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// AnalyzeWarrant produces a short liquidity and holding-cost health
// check for one warrant. On any failure it returns a user-facing
// placeholder instead of an error.
func (c *Client) AnalyzeWarrant(ctx context.Context, w models.Warrant) string {
	side := "認售"
	if w.IsCall() {
		side = "認購"
	}

	prompt := fmt.Sprintf(`請針對以下這檔權證進行「流動性風險」與「持有成本」的快速健診。

權證資料:
- 名稱: %s (%s)
- 標的: %s
- 類型: %s
- 現價: %.2f
- 買價(Bid): %.2f (量: %.0f)
- 賣價(Ask): %.2f (量: %.0f)
- 價差比: %.2f%%
- 實質槓桿: %.2f倍
- 每日時間價值流失(Theta): %.2f%%
- 當日成交量: %.0f張

任務:
1. 評估價差是否過大導致進出困難。
2. 評估利息成本是否過高而不適合波段持有。
3. 綜合給出操作建議 (例如: 適合極短線、可波段、或建議觀望)。

限制: 字數嚴格控制在 100 字以內。`,
		w.Name, w.Symbol, w.UnderlyingName, side,
		w.Price, w.BestBidPrice, w.BestBidVol, w.BestAskPrice, w.BestAskVol,
		w.SpreadPercent, w.EffectiveLeverage, w.ThetaPercent, w.Volume)

	text, err := c.complete(ctx, warrantSystemPrompt, prompt)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", w.Symbol).Msg("Warrant analysis failed")
		return unavailableText
	}
	if text == "" {
		return unavailableText
	}
	return text
}

// MarketCommentary produces free-text market commentary plus any
// source citations the model listed. Failures return a placeholder
// result, never an error.
func (c *Client) MarketCommentary(ctx context.Context) models.AnalysisResult {
	prompt := `請整理今日台股盤勢重點：大盤趨勢、關鍵支撐與壓力位、主要族群動向。
字數 200~600 字，讓讀者能快速吸收重點。`

	text, err := c.complete(ctx, commentarySystemPrompt, prompt)
	if err != nil || text == "" {
		if err != nil {
			c.logger.Warn().Err(err).Msg("Market commentary failed")
		}
		return models.AnalysisResult{Content: unavailableText}
	}

	content, sources := ExtractSources(text)
	return models.AnalysisResult{Content: content, Sources: sources}
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractSources splits trailing URL lines out of a commentary into
// deduplicated citations. Lines that are bare URLs become sources;
// everything else stays in the content.
func ExtractSources(text string) (string, []models.AnalysisSource) {
	lines := strings.Split(text, "\n")
	var content []string
	var sources []models.AnalysisSource
	seen := make(map[string]bool)

	for _, line := range lines {
		trimmed := strings.Trim(strings.TrimSpace(line), "-*• ")
		trimmed = strings.TrimSpace(trimmed)
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			if !seen[trimmed] {
				seen[trimmed] = true
				sources = append(sources, models.AnalysisSource{Title: trimmed, URI: trimmed})
			}
			continue
		}
		content = append(content, line)
	}

	return strings.TrimSpace(strings.Join(content, "\n")), sources
}
