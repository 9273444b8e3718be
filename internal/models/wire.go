package models

// DetectRequest is the text frame sent ahead of the encoded image.
type DetectRequest struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	Confidence float32 `json:"conf"`
}

type ImageResult struct {
	Boxes []DetectedBox `json:"boxes"`
}

// DetectResponse is the single text frame the server answers with.
type DetectResponse struct {
	ID      string            `json:"id"`
	Names   map[string]string `json:"names"`
	Results []ImageResult     `json:"results"`
	Error   string            `json:"error,omitempty"`
}
