package ai

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatCompletionResponse is one streamed response object. Pointer fields let the
// decoder tell a missing field apart from an empty one.
type chatCompletionResponse struct {
	Choices *[]chatChoice `json:"choices"`
}

type chatChoice struct {
	Message *chatChoiceMessage `json:"message"`
}

type chatChoiceMessage struct {
	Content *string `json:"content"`
}

type retrievalRequest struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}

type retrievalResponse struct {
	Data *string `json:"data"`
}
