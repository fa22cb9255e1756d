package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/annel0/al-spectator/internal/auth"
	"github.com/annel0/al-spectator/internal/eventbus"
	"github.com/annel0/al-spectator/internal/middleware"
	"github.com/annel0/al-spectator/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// IngestEvent: одно событие игрового сервера в теле запроса
type IngestEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// IngestResponse: идентификаторы принятых конвертов
type IngestResponse struct {
	Accepted int      `json:"accepted"`
	IDs      []string `json:"ids"`
}

// handleIngest принимает событие или массив событий вкладки и публикует
// их в шину. Порядок событий внутри запроса сохраняется.
func (rs *RestServer) handleIngest(c *gin.Context) {
	tab := c.Param("tab")
	if _, ok := rs.lookupTab(c); !ok {
		return
	}
	if rs.bus == nil {
		fail(c, http.StatusServiceUnavailable, "Шина событий недоступна")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, rs.maxIngestSize+1))
	if err != nil {
		fail(c, http.StatusBadRequest, "Не удалось прочитать тело запроса")
		return
	}
	if int64(len(body)) > rs.maxIngestSize {
		fail(c, http.StatusRequestEntityTooLarge, "Слишком большое тело запроса")
		return
	}

	if rs.ingestSecret != "" && !rs.verifySignature(body, c.GetHeader("X-Signature")) {
		fail(c, http.StatusUnauthorized, "Неверная подпись")
		return
	}

	events, err := parseIngest(body)
	if err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат события: "+err.Error())
		return
	}

	ctx, span := observability.Tracer().Start(c.Request.Context(), "spectator.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("tab", tab), attribute.Int("events", len(events)))

	traceID := c.GetString(middleware.TraceIDKey)
	subject := ""
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			subject = claims.Subject
		}
	}

	resp := IngestResponse{IDs: make([]string, 0, len(events))}
	for _, ev := range events {
		env := eventbus.NewEnvelope(tab, ev.Event, ev.Data)
		env.CorrelationID = traceID
		if subject != "" {
			env.Metadata = map[string]string{"subject": subject}
		}
		if err := rs.bus.Publish(ctx, env); err != nil {
			rs.logger.Error("❌ Не удалось опубликовать %s для %s: %v", ev.Event, tab, err)
			span.RecordError(err)
			c.JSON(http.StatusServiceUnavailable, GenericResponse{
				Success: false,
				Message: "Шина событий недоступна",
				Data:    resp,
			})
			return
		}
		resp.Accepted++
		resp.IDs = append(resp.IDs, env.ID)
	}

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "События приняты",
		Data:    resp,
	})
}

// parseIngest разбирает одно событие или массив событий
func parseIngest(body []byte) ([]IngestEvent, error) {
	trimmed := bytes.TrimSpace(body)
	var events []IngestEvent
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
	} else {
		var ev IngestEvent
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, err
		}
		events = []IngestEvent{ev}
	}
	if len(events) == 0 {
		return nil, errEmptyIngest
	}
	for _, ev := range events {
		if ev.Event == "" {
			return nil, errMissingEvent
		}
	}
	return events, nil
}

type ingestError string

func (e ingestError) Error() string { return string(e) }

const (
	errEmptyIngest  ingestError = "пустой список событий"
	errMissingEvent ingestError = "событие без имени"
)

// verifySignature проверяет HMAC-SHA256 подпись тела ("sha256=<hex>")
func (rs *RestServer) verifySignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(rs.ingestSecret, body)))
}

// Sign вычисляет подпись тела для заголовка X-Signature
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
