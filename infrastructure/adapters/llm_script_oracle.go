package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/donovanhide/eventsource"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/domain"
)

const doneSignal = "[DONE]"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type llmScriptOracle struct {
	logger outbound.LoggerPort
	client *http.Client
	cfg    *config.OracleConfig
}

// NewLLMScriptOracle builds the script oracle backed by an OpenAI-compatible
// chat completions endpoint.
func NewLLMScriptOracle(logger outbound.LoggerPort, cfg *config.OracleConfig) outbound.ScriptOraclePort {
	return &llmScriptOracle{
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

func (o *llmScriptOracle) GenerateScript(ctx context.Context, text string) (*domain.OracleScript, error) {
	var (
		raw string
		err error
	)
	if o.cfg.Stream {
		raw, err = o.completeStreaming(ctx, text)
	} else {
		raw, err = o.complete(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	script, err := parseOracleScript(raw)
	if err != nil {
		o.logger.ErrorWithFields(err, "oracle returned unparseable script", map[string]interface{}{
			"reply_length": len(raw),
		})
		return nil, domain.NewPermanent(domain.ErrorKindOracle, err)
	}
	return script, nil
}

func (o *llmScriptOracle) complete(ctx context.Context, text string) (string, error) {
	req, err := o.createRequest(ctx, text, false)
	if err != nil {
		return "", domain.NewPermanent(domain.ErrorKindOracle, err)
	}

	res, err := o.client.Do(req)
	if err != nil {
		return "", domain.NewTransient(domain.ErrorKindOracle, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			o.logger.Error(closeErr, "failed to close oracle response body")
		}
	}()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		statusErr := fmt.Errorf("oracle returned status %d: %s", res.StatusCode, string(body))
		if transientStatus(res.StatusCode) {
			return "", domain.NewTransient(domain.ErrorKindOracle, statusErr)
		}
		return "", domain.NewPermanent(domain.ErrorKindOracle, statusErr)
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", domain.NewPermanent(domain.ErrorKindOracle, fmt.Errorf("decode oracle response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", domain.NewPermanent(domain.ErrorKindOracle, fmt.Errorf("oracle response carried no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// completeStreaming consumes the SSE variant of the completions endpoint and
// reassembles the full reply from the deltas.
func (o *llmScriptOracle) completeStreaming(ctx context.Context, text string) (string, error) {
	req, err := o.createRequest(ctx, text, true)
	if err != nil {
		return "", domain.NewPermanent(domain.ErrorKindOracle, err)
	}

	stream, err := eventsource.SubscribeWithRequest("", req)
	if err != nil {
		return "", domain.NewTransient(domain.ErrorKindOracle, err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", domain.ErrCancelled
		case ev := <-stream.Events:
			if ev.Data() == doneSignal {
				return builder.String(), nil
			}
			var chunk chatChunk
			if err := json.Unmarshal([]byte(ev.Data()), &chunk); err != nil {
				return "", domain.NewPermanent(domain.ErrorKindOracle, fmt.Errorf("decode stream chunk: %w", err))
			}
			if len(chunk.Choices) > 0 {
				builder.WriteString(chunk.Choices[0].Delta.Content)
			}
		case err := <-stream.Errors:
			if err == io.EOF {
				return builder.String(), nil
			}
			return "", domain.NewTransient(domain.ErrorKindOracle, err)
		}
	}
}

func (o *llmScriptOracle) createRequest(ctx context.Context, text string, stream bool) (*http.Request, error) {
	body := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a professional audiobook production assistant, skilled at analysing narrative text and producing voice scripts."},
			{Role: "user", Content: buildOraclePrompt(text)},
		},
		Temperature: 0.7,
		MaxTokens:   20000,
		Stream:      stream,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.cfg.APIURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create oracle request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func buildOraclePrompt(text string) string {
	return fmt.Sprintf(`Analyse the following narrative text for audiobook narration.
1. List the characters that appear, with inferred gender (Male or Female) and one personality:
   Male: Passion, Lively, Sunshine, Cute, Professional, Reliable. Female: Warm, Lively, Humorous, Bright.
2. Split the text into ordered spans attributed to either a character (dialogue only) or "narrator" (everything else).
   Keep every sentence and preserve the original order.
3. Recommend "rate", "volume" (percent, e.g. "+10%%") and "pitch" (e.g. "-5Hz") per span; "+0" values may be omitted.
Return strictly this JSON, with no surrounding prose:
{"charactors":[{"name":"...","gender":"...","personalities":"..."}],"segments":[{"charactor":"...","rate":"...","volume":"...","pitch":"...","text":"..."}]}

Text:
%s`, text)
}

// parseOracleScript tolerates the usual LLM sloppiness: control characters
// are stripped and, when the reply is not pure JSON, the outermost object is
// extracted before unmarshalling.
func parseOracleScript(raw string) (*domain.OracleScript, error) {
	cleaned := cleanForJSON(raw)

	var script domain.OracleScript
	if err := json.Unmarshal([]byte(cleaned), &script); err == nil {
		return &script, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("oracle reply contains no JSON object")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &script); err != nil {
		return nil, fmt.Errorf("oracle reply is not valid JSON: %w", err)
	}
	return &script, nil
}

// cleanForJSON drops control characters (except \n, \r, \t) and zero-width
// runes that trip the JSON decoder.
func cleanForJSON(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20 || (r >= 0x7F && r <= 0x9F):
			return -1
		case r >= 0x200B && r <= 0x200D, r == 0xFEFF:
			return -1
		}
		return r
	}, s)
}

// transientStatus classifies HTTP statuses worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}
