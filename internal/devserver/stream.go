package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const streamSentinel = "[DONE]"

// streamChat answers prompt as a text/event-stream of chunks terminated by
// the sentinel.
func (s *Server) streamChat(c *gin.Context) {
	prompt := strings.TrimSpace(c.Query("prompt"))
	if prompt == "" {
		fail(c, http.StatusBadRequest, "prompt must not be empty")
		return
	}
	start := time.Now()
	reply := s.data.answer(prompt).Response
	chunks := splitChunks(reply, s.chunks)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for _, chunk := range chunks {
		if s.chunkDelay > 0 {
			select {
			case <-time.After(s.chunkDelay):
			case <-ctx.Done():
				return
			}
		}
		c.SSEvent("message", chunk)
		c.Writer.Flush()
		s.metrics.streamChunks.Inc()
	}
	c.SSEvent("message", streamSentinel)
	c.Writer.Flush()
	s.data.record("AI_"+uuid.NewString()[:8], prompt, reply, time.Since(start))
}

// splitChunks cuts text into at most n rune-aligned pieces.
func splitChunks(text string, n int) []string {
	runes := []rune(text)
	if n <= 1 || len(runes) == 0 {
		return []string{text}
	}
	size := (len(runes) + n - 1) / n
	out := make([]string, 0, n)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
