package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Имена событий, которые сервер отправляет браузеру
const (
	EventNewTab     = "newTab"
	EventMap        = "map"
	EventMonster    = "monster"
	EventCharacter  = "character"
	EventProjectile = "projectile"
	EventRemove     = "remove"
	EventRemoveAll  = "removeAll"
)

// Имена событий, которые браузер отправляет серверу
const (
	EventSwitchTab = "switchTab"
)

// ErrMalformedMessage возвращается для кадров без имени события или с битым JSON
var ErrMalformedMessage = errors.New("malformed message")

// Message представляет один кадр WebSocket: имя события и его данные
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewMessage сериализует данные события в Message
func NewMessage(event string, data interface{}) (*Message, error) {
	msg := &Message{Event: event}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	msg.Data = raw
	return msg, nil
}

// Encode сериализует кадр целиком
func Encode(event string, data interface{}) ([]byte, error) {
	msg, err := NewMessage(event, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode разбирает кадр; данные остаются сырыми до DecodeData
func Decode(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: empty event", ErrMalformedMessage)
	}
	return &msg, nil
}

// DecodeData разбирает данные кадра в target
func (m *Message) DecodeData(target interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedMessage, m.Event)
	}
	if err := json.Unmarshal(m.Data, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, m.Event, err)
	}
	return nil
}
