package chatreply

type Input struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type Output struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}
