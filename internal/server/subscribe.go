package server

import (
	"io"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SubscribeBookAdded streams created books to the client as server-sent
// events. The stream starts at subscription time; events published earlier
// are not replayed, and a dropped connection loses whatever was in flight.
func (s *Server) SubscribeBookAdded(ginCtx *gin.Context) {
	events, cancel := s.Bus.Subscribe()
	defer cancel()

	ginCtx.Header("Content-Type", "text/event-stream")
	ginCtx.Header("Cache-Control", "no-cache")
	ginCtx.Header("Connection", "keep-alive")
	// flush the headers so the client sees the stream open before any event
	ginCtx.Writer.Flush()

	ginCtx.Stream(func(_ io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event.Book)
			if err != nil {
				s.log.Error().Err(err).Msg("marshal book event failed")
				return true
			}
			ginCtx.SSEvent(event.Name, string(payload))
			return true
		case <-ginCtx.Request.Context().Done():
			return false
		}
	})
}
