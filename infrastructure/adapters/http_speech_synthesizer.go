package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/domain"
)

type ttsRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Rate   string `json:"rate,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
	Volume string `json:"volume,omitempty"`
}

type httpSpeechSynthesizer struct {
	ContentFetcher
	logger outbound.LoggerPort
	cfg    *config.TTSConfig
}

// NewHTTPSpeechSynthesizer builds the synthesizer backed by an edge-tts style
// HTTP service returning MP3 audio.
func NewHTTPSpeechSynthesizer(contentFetcher ContentFetcher, logger outbound.LoggerPort, cfg *config.TTSConfig) outbound.SpeechSynthesizerPort {
	return &httpSpeechSynthesizer{
		ContentFetcher: contentFetcher,
		logger:         logger,
		cfg:            cfg,
	}
}

func (s *httpSpeechSynthesizer) Synthesize(ctx context.Context, params outbound.SynthesizeParams) ([]byte, error) {
	req, err := s.getRequest(ctx, params)
	if err != nil {
		s.logger.ErrorWithFields(err, "failed to construct the synthesis request", map[string]interface{}{
			"voice": params.VoiceID,
		})
		return nil, domain.NewPermanent(domain.ErrorKindSynthesis, err)
	}

	return s.FetchContent(req, domain.ErrorKindSynthesis)
}

func (s *httpSpeechSynthesizer) getRequest(ctx context.Context, params outbound.SynthesizeParams) (*http.Request, error) {
	reqBody := ttsRequest{
		Text:   params.Text,
		Voice:  params.VoiceID,
		Rate:   params.Prosody.Rate,
		Pitch:  params.Prosody.Pitch,
		Volume: params.Prosody.Volume,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL+"/synthesize", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	return req, nil
}
