package outbound

// ResumePoint records how far synthesis progressed for one piece of content:
// the next script segment to synthesize and the sink watermark at the last
// commit.
type ResumePoint struct {
	SegmentIndex int   `json:"segment_index"`
	Watermark    int64 `json:"watermark"`
}

// ResumeStorePort persists resume points after every committed segment, so a
// new task for the same content continues appending instead of restarting.
type ResumeStorePort interface {
	Save(contentID string, point ResumePoint) error
	Load(contentID string) (ResumePoint, bool)
	Clear(contentID string) error
}
