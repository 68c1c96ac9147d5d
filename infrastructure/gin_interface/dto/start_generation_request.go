package dto

type StartGenerationRequest struct {
	Text      string `json:"text" binding:"required"`
	ContentID string `json:"content_id" binding:"required"`
	ActorID   string `json:"actor_id" binding:"required"`
}

type StartGenerationResponse struct {
	TaskID string `json:"task_id"`
}
