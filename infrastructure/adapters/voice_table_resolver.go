package adapters

import (
	"strconv"
	"strings"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/domain"
)

type voiceTableResolver struct {
	logger outbound.LoggerPort
	cfg    *config.VoicesConfig
}

// NewVoiceTableResolver builds the in-memory gender/personality voice lookup.
func NewVoiceTableResolver(logger outbound.LoggerPort, cfg *config.VoicesConfig) outbound.VoiceResolverPort {
	return &voiceTableResolver{logger: logger, cfg: cfg}
}

func (r *voiceTableResolver) Resolve(speaker domain.Speaker) outbound.VoiceSelection {
	gender := strings.ToLower(strings.TrimSpace(speaker.Gender))
	personality := strings.ToLower(strings.TrimSpace(speaker.Personality))

	if byPersonality, ok := r.cfg.Table[gender]; ok {
		if voiceID, ok := byPersonality[personality]; ok {
			return outbound.VoiceSelection{
				VoiceID: voiceID,
				Prosody: r.defaultProsody(),
			}
		}
	}

	r.logger.WarnWithFields("no voice for speaker attributes, using narrator", map[string]interface{}{
		"speaker":     speaker.Name,
		"gender":      speaker.Gender,
		"personality": speaker.Personality,
	})
	return r.Narrator()
}

// Narrator returns the narration voice. Its rate never drops below the
// configured minimum so long descriptive passages keep moving.
func (r *voiceTableResolver) Narrator() outbound.VoiceSelection {
	prosody := r.defaultProsody()
	prosody.Rate = clampRate(prosody.Rate, r.cfg.NarratorMinRate)
	return outbound.VoiceSelection{
		VoiceID: r.cfg.Narrator,
		Prosody: prosody,
	}
}

func (r *voiceTableResolver) defaultProsody() domain.Prosody {
	return domain.Prosody{
		Rate:   r.cfg.DefaultRate,
		Pitch:  r.cfg.DefaultPitch,
		Volume: r.cfg.DefaultVolume,
	}
}

// clampRate lifts rate up to min when it is slower. Rates are signed percent
// strings like "-20%"; unparseable values pass through unchanged.
func clampRate(rate, min string) string {
	rv, ok1 := parseRatePercent(rate)
	mv, ok2 := parseRatePercent(min)
	if ok1 && ok2 && rv < mv {
		return min
	}
	return rate
}

func parseRatePercent(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.TrimPrefix(s, "+")
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
