package outbound

import "github.com/catsite05/novelvoice/domain"

// VoiceSelection is a concrete synthesized voice plus its default prosody.
type VoiceSelection struct {
	VoiceID string
	Prosody domain.Prosody
}

// VoiceResolverPort maps speaker attributes to a concrete voice. Pure, fast
// lookup; no network. Unknown attribute pairs resolve to the narrator voice.
type VoiceResolverPort interface {
	Resolve(speaker domain.Speaker) VoiceSelection
	Narrator() VoiceSelection
}
