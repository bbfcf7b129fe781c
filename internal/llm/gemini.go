// Package llm phrases arrival estimates with Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
)

// FallbackMessage is returned whenever the model cannot be reached.
const FallbackMessage = "Não foi possível estimar o horário de chegada no momento."

var ErrNotConfigured = errors.New("gemini API key is not configured")

var promptTemplate = template.Must(template.New("prompt").Parse(
	`Aja como um especialista em logística de transporte público da cidade de Saquarema.
O horário atual é {{.Now}}.
Um ônibus da linha {{.Line.Number}} (trajeto: {{.Line.Origin}} para {{.Line.Destination}}) partiu do ponto inicial aproximadamente às {{.DepartureTime}}.
O Google Maps estima que a viagem do ponto inicial até a parada "{{.StopName}}" leva cerca de {{.DurationText}}{{if .DistanceText}} e a distância é de {{.DistanceText}}{{end}}.

Com base nestes dados, e considerando o trânsito normal de uma cidade pequena como Saquarema e as paradas no caminho, qual é o horário de chegada mais provável do ônibus na parada "{{.StopName}}"?

Responda APENAS com o horário estimado no formato "HH:MM" e, se quiser, um breve comentário de confiança. Exemplo: "18:45 (previsão com alta confiança)" ou simplesmente "18:45".
`))

type promptData struct {
	planner.PredictionContext
	Now string
}

// BuildPrompt renders the question sent to the model.
func BuildPrompt(pc planner.PredictionContext) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{PredictionContext: pc, Now: pc.Now.Format("15:04")})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}

// Predictor implements planner.ArrivalPredictor.
type Predictor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPredictor creates a Gemini client. baseURL overrides the API endpoint and is empty
// outside tests.
func NewPredictor(ctx context.Context, cfg appconf.LLMConfig, timeout time.Duration, m *metrics.Metrics, baseURL string) (*Predictor, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Predictor{
		client:  client,
		model:   cfg.Model,
		timeout: timeout,
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "gemini")),
	}, nil
}

// PredictArrival asks the model for the arrival time. A blocked prompt yields an
// explanation and any other failure yields FallbackMessage.
func (p *Predictor) PredictArrival(ctx context.Context, pc planner.PredictionContext) string {
	prompt, err := BuildPrompt(pc)
	if err != nil {
		logging.LogError(p.logger, "prompt rendering failed", err)
		return FallbackMessage
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 64,
	})
	if err != nil {
		p.metrics.RecordLookup("gemini", "error", time.Since(start))
		logging.LogError(p.logger, "gemini request failed", err,
			slog.String("line", pc.Line.Number), slog.String("stop", pc.StopName))
		return FallbackMessage
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		p.metrics.RecordLookup("gemini", "blocked", time.Since(start))
		p.logger.Warn("gemini blocked the prompt", slog.String("reason", string(fb.BlockReason)))
		return fmt.Sprintf("A previsão foi bloqueada por políticas de segurança. Motivo: %s", fb.BlockReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		p.metrics.RecordLookup("gemini", "error", time.Since(start))
		return FallbackMessage
	}
	p.metrics.RecordLookup("gemini", "ok", time.Since(start))
	return text
}
