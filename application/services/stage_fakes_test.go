package services

import (
	"context"
	"sync"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
)

type fakeOracle struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, text string) (*domain.OracleScript, error)
}

func (f *fakeOracle) GenerateScript(_ context.Context, text string) (*domain.OracleScript, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	return f.fn(call, text)
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct{}

func (fakeResolver) Resolve(speaker domain.Speaker) outbound.VoiceSelection {
	return outbound.VoiceSelection{
		VoiceID: "voice-" + speaker.Gender,
		Prosody: domain.Prosody{Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"},
	}
}

func (fakeResolver) Narrator() outbound.VoiceSelection {
	return outbound.VoiceSelection{
		VoiceID: "voice-narrator",
		Prosody: domain.Prosody{Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"},
	}
}

type fakeSynthesizer struct {
	fn func(params outbound.SynthesizeParams) ([]byte, error)
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, params outbound.SynthesizeParams) ([]byte, error) {
	return f.fn(params)
}

type fakeTranscoder struct {
	mu      sync.Mutex
	offsets []int64
	fn      func(params outbound.TranscodeParams) (*outbound.TranscodeResult, error)
}

func (f *fakeTranscoder) Transcode(_ context.Context, params outbound.TranscodeParams) (*outbound.TranscodeResult, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, params.Offset)
	f.mu.Unlock()
	return f.fn(params)
}

func (f *fakeTranscoder) seenOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.offsets...)
}

type memoryResumeStore struct {
	mu     sync.Mutex
	points map[string]outbound.ResumePoint
}

func newMemoryResumeStore() *memoryResumeStore {
	return &memoryResumeStore{points: make(map[string]outbound.ResumePoint)}
}

func (m *memoryResumeStore) Save(contentID string, point outbound.ResumePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[contentID] = point
	return nil
}

func (m *memoryResumeStore) Load(contentID string) (outbound.ResumePoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	point, ok := m.points[contentID]
	return point, ok
}

func (m *memoryResumeStore) Clear(contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, contentID)
	return nil
}

func oracleScriptFor(text string) *domain.OracleScript {
	return &domain.OracleScript{
		Speakers: []domain.Speaker{
			{Name: domain.NarratorName, Gender: "Male", Personality: "Professional"},
		},
		Spans: []domain.OracleSpan{
			{Speaker: domain.NarratorName, Text: text},
		},
	}
}
