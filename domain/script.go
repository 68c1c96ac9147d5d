package domain

// Prosody carries the voice rendering parameters recommended by the script
// oracle, in edge-tts notation ("+10%", "-5Hz"). Empty values mean engine
// defaults.
type Prosody struct {
	Rate   string `json:"rate,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
	Volume string `json:"volume,omitempty"`
}

// Speaker is a character detected by the script oracle, with the attributes
// the voice resolver keys on.
type Speaker struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Personality string `json:"personalities"`
}

// NarratorName is the speaker name the oracle uses for non-dialogue spans.
const NarratorName = "narrator"

// ScriptLine is one narration or dialogue span, fully resolved for synthesis.
type ScriptLine struct {
	Speaker string  `json:"speaker"`
	VoiceID string  `json:"voice_id"`
	Text    string  `json:"text"`
	Prosody Prosody `json:"prosody"`
}

// ScriptSegment is the unit of work flowing from script generation to
// synthesis. Immutable once enqueued; consumed exactly once, in Index order.
type ScriptSegment struct {
	Index int          `json:"index"`
	Lines []ScriptLine `json:"lines"`
}

// OracleScript is the raw structured output of the script oracle for one text
// segment, before voice resolution.
type OracleScript struct {
	Speakers []Speaker    `json:"charactors"`
	Spans    []OracleSpan `json:"segments"`
}

// OracleSpan attributes a literal text span to a speaker.
type OracleSpan struct {
	Speaker string `json:"charactor"`
	Text    string `json:"text"`
	Rate    string `json:"rate,omitempty"`
	Pitch   string `json:"pitch,omitempty"`
	Volume  string `json:"volume,omitempty"`
}
