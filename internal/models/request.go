package models

type RevisionRequest struct {
	// Comment describes what the client wants changed. Required.
	Comment string `json:"comment" example:"Trocar a cor do cabeçalho"`
}

type UpdateStatusRequest struct {
	// Status is one of in_progress, completed, cancelled.
	Status string `json:"status" example:"completed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
