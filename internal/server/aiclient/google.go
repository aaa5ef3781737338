package aiclient

// Wire types for the natural-language sentiment endpoint.

const AnalyzeSentimentPath = "/documents:analyzeSentiment"

type Document struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type SentimentRequest struct {
	Document     Document `json:"document"`
	EncodingType string   `json:"encodingType"`
}

// PlainTextSentimentRequest builds a request for a plain-text document.
func PlainTextSentimentRequest(text string) SentimentRequest {
	return SentimentRequest{
		Document:     Document{Type: "PLAIN_TEXT", Content: text},
		EncodingType: "UTF8",
	}
}

type Sentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type Sentence struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
}

type SentimentResponse struct {
	DocumentSentiment Sentiment  `json:"documentSentiment"`
	Language          string     `json:"language"`
	Sentences         []Sentence `json:"sentences"`
}
