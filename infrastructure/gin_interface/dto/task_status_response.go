package dto

import "github.com/catsite05/novelvoice/domain"

// PlaylistInfo summarizes the packaged side of a running task.
type PlaylistInfo struct {
	Segments int     `json:"segments"`
	Duration float64 `json:"duration"`
}

type TaskStatusResponse struct {
	domain.TaskStatus
	Playlist PlaylistInfo `json:"playlist"`
}
