package outbound

import "context"

// ArtifactPublisherPort uploads the closed playlist and its media segments
// once a task completes. Retention and cleanup of the local artifact
// directory stay with the operator.
type ArtifactPublisherPort interface {
	Publish(ctx context.Context, actorID, taskID, artifactDir string) error
}
