package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/al-spectator/internal/api"
	"github.com/annel0/al-spectator/internal/eventbus"
)

// Record: одна строка записи: событие игрового сервера и его смещение от начала
type Record struct {
	Tab   string          `json:"tab"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	AtMs  int64           `json:"at_ms"`
}

// Sink публикует событие вкладки
type Sink interface {
	Send(ctx context.Context, rec Record) error
	Close() error
}

func main() {
	var (
		input   = flag.String("in", "-", "JSONL файл с записью (- для stdin)")
		mode    = flag.String("mode", "http", "Куда отправлять: http или nats")
		server  = flag.String("server", "http://localhost:8080", "Адрес REST API (mode=http)")
		token   = flag.String("token", "", "JWT с ролью ingest (mode=http)")
		secret  = flag.String("secret", "", "Секрет подписи X-Signature (mode=http)")
		natsURL = flag.String("nats", "nats://127.0.0.1:4222", "Адрес NATS (mode=nats)")
		stream  = flag.String("stream", "SPECTATOR", "Имя JetStream стрима (mode=nats)")
		tab     = flag.String("tab", "", "Переопределить вкладку всех записей")
		speed   = flag.Float64("speed", 1, "Множитель скорости; 0 — без пауз")
		loop    = flag.Bool("loop", false, "Повторять запись по кругу")
		verbose = flag.Bool("v", false, "Печатать каждое событие")
	)
	flag.Parse()

	records, err := readRecords(*input)
	if err != nil {
		log.Fatalf("❌ Failed to read records: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("❌ No records in %s", *input)
	}
	if *tab != "" {
		for i := range records {
			records[i].Tab = *tab
		}
	}

	var sink Sink
	switch *mode {
	case "http":
		sink = &httpSink{
			base:   strings.TrimRight(*server, "/"),
			token:  *token,
			secret: *secret,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	case "nats":
		bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, time.Hour)
		if err != nil {
			log.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
		sink = &busSink{bus: bus}
	default:
		fmt.Printf("❌ Unknown mode: %s\n", *mode)
		fmt.Println("Available modes: http, nats")
		os.Exit(1)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🎬 Replaying %d events (mode: %s, speed: %.2f, loop: %v)\n", len(records), *mode, *speed, *loop)
	for {
		sent, err := replay(ctx, sink, records, *speed, *verbose)
		fmt.Printf("📊 Sent %d/%d events\n", sent, len(records))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("❌ Replay failed: %v", err)
		}
		if !*loop {
			return
		}
	}
}

// readRecords читает JSONL; пустые строки и строки с # пропускаются
func readRecords(path string) ([]Record, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Tab == "" || rec.Event == "" {
			return nil, fmt.Errorf("line %d: tab and event are required", line)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// replay отправляет записи, выдерживая исходные интервалы с учётом speed
func replay(ctx context.Context, sink Sink, records []Record, speed float64, verbose bool) (int, error) {
	start := time.Now()
	base := records[0].AtMs
	for i, rec := range records {
		if speed > 0 {
			offset := time.Duration(float64(rec.AtMs-base)/speed) * time.Millisecond
			if wait := time.Until(start.Add(offset)); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return i, ctx.Err()
				}
			}
		}
		if err := sink.Send(ctx, rec); err != nil {
			return i, fmt.Errorf("event %d (%s/%s): %w", i, rec.Tab, rec.Event, err)
		}
		if verbose {
			fmt.Printf("  ➡️  %s %s (%d bytes)\n", rec.Tab, rec.Event, len(rec.Data))
		}
	}
	return len(records), nil
}

// httpSink публикует через POST /api/tabs/:tab/events; неизвестная вкладка
// создаётся через POST /api/tabs
type httpSink struct {
	base   string
	token  string
	secret string
	client *http.Client
	known  map[string]bool
}

func (s *httpSink) Send(ctx context.Context, rec Record) error {
	if s.known == nil {
		s.known = make(map[string]bool)
	}
	body, err := json.Marshal(api.IngestEvent{Event: rec.Event, Data: rec.Data})
	if err != nil {
		return err
	}

	status, err := s.post(ctx, "/api/tabs/"+rec.Tab+"/events", body, true)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound && !s.known[rec.Tab] {
		tabBody, _ := json.Marshal(api.CreateTabRequest{Name: rec.Tab})
		if _, err := s.post(ctx, "/api/tabs", tabBody, false); err != nil {
			return err
		}
		s.known[rec.Tab] = true
		status, err = s.post(ctx, "/api/tabs/"+rec.Tab+"/events", body, true)
		if err != nil {
			return err
		}
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", status)
	}
	s.known[rec.Tab] = true
	return nil
}

func (s *httpSink) post(ctx context.Context, path string, body []byte, sign bool) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if sign && s.secret != "" {
		req.Header.Set("X-Signature", api.Sign(s.secret, body))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (s *httpSink) Close() error { return nil }

// busSink публикует прямо в JetStream, минуя REST
type busSink struct {
	bus eventbus.EventBus
}

func (s *busSink) Send(ctx context.Context, rec Record) error {
	return s.bus.Publish(ctx, eventbus.NewEnvelope(rec.Tab, rec.Event, rec.Data))
}

func (s *busSink) Close() error { return s.bus.Close() }
