// Package ocr extracts a best-effort match prefill from an uploaded result
// screenshot using the Gemini API. The extraction is advisory: callers must
// treat the roster guess as incomplete or wrong and fall back to manual entry
// whenever the call fails or times out.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"dota-scoreboard/internal/config"
)

const geminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

const prompt = `这是一张DOTA2游戏比赛结果截图，请帮我识别其中的信息。

请提取：
1. 获胜方是哪一方（天辉或夜魔）
2. 所有玩家的昵称
3. 玩家的称号标签（只关注：MVP、SVP、僵 这三种）

截图说明：
- 图片分上下两部分，有"胜利"文字的是获胜方
- 每方有5个玩家
- 玩家昵称在头像旁边
- 称号标签是玩家名下方的小字

请用以下JSON格式回复：
{"winner":"天辉或夜魔","radiant_players":[{"name":"玩家名","tags":["MVP"]}],"dire_players":[{"name":"玩家名","tags":[]}]}

注意：天辉=Radiant，夜魔=Dire。只返回JSON，不要其他文字。`

// RosterGuess is one extracted roster slot. Tags are raw labels; the service
// boundary filters them against the known set.
type RosterGuess struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// ParseResult is the model's best-effort reading of a screenshot.
type ParseResult struct {
	Winner  string        `json:"winner"`
	Radiant []RosterGuess `json:"radiant_players"`
	Dire    []RosterGuess `json:"dire_players"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey: cfg.GeminiAPIKey,
		client: &fasthttp.Client{
			ReadTimeout:         60 * time.Second,
			WriteTimeout:        30 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger,
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ParseScreenshot sends the image at path to Gemini and decodes the roster
// guess from its reply.
func (c *Client) ParseScreenshot(ctx context.Context, path string) (*ParseResult, error) {
	if !c.Available() {
		return nil, fmt.Errorf("no Gemini API key configured")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{
					MimeType: mimeTypeFor(path),
					Data:     base64.StdEncoding.EncodeToString(raw),
				}},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(geminiURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("call Gemini: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("Gemini API error: %d", resp.StatusCode())
	}

	var decoded geminiResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("decode Gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty Gemini response")
	}

	result, err := decodeResultText(decoded.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("winner", result.Winner).
		Int("radiant", len(result.Radiant)).
		Int("dire", len(result.Dire)).
		Msg("screenshot parsed")
	return result, nil
}

// decodeResultText parses the model's JSON reply, tolerating markdown code
// fences around it.
func decodeResultText(text string) (*ParseResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var result ParseResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &result); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	return &result, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
