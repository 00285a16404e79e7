package googleEmbedding

import (
	"errors"
	"net/http"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/akolanti/DocQA/pkg/logger_i"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry reports a rate limit, whether it came back over REST or gRPC.
func doRetry(err error, log *logger_i.Logger) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", apiErr.Message)
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

func vectorsOf(res *genai.EmbedContentResponse) [][]float32 {
	if res == nil {
		return nil
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out
}
