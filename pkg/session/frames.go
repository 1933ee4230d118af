package session

import (
	"time"

	"github.com/simmurator/simmurator/pkg/sensor"
)

// Frame types sent to clients.
const (
	TypeWelcome      = "welcome"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypeData         = "data"
	TypeSensorsList  = "sensors_list"
	TypePong         = "pong"
	TypeError        = "error"
)

// WelcomeMessage is the text of the welcome frame.
const WelcomeMessage = "Connected to Simmurator WebSocket. Send subscribe action to start."

// Error frame messages.
const (
	MsgInvalidJSON   = "Invalid JSON"
	MsgUnknownAction = "Unknown action: "
)

// WelcomeFrame is sent once when a session starts.
type WelcomeFrame struct {
	Type             string   `json:"type"`
	AvailableSensors []string `json:"availableSensors"`
	Message          string   `json:"message"`
}

// SubscribedFrame answers a subscribe action.
type SubscribedFrame struct {
	Type     string   `json:"type"`
	Sensors  []string `json:"sensors"`
	Interval int64    `json:"interval"`
	Unknown  []string `json:"unknown,omitempty"`
}

// UnsubscribedFrame answers an unsubscribe action.
type UnsubscribedFrame struct {
	Type      string   `json:"type"`
	Sensors   []string `json:"sensors"`
	Remaining []string `json:"remaining"`
}

// DataFrame carries one reading.
type DataFrame struct {
	Type      string          `json:"type"`
	Sensor    string          `json:"sensor"`
	Data      *sensor.Reading `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// SensorsListFrame answers a list action.
type SensorsListFrame struct {
	Type    string   `json:"type"`
	Sensors []string `json:"sensors"`
}

// PongFrame answers a ping action.
type PongFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// ErrorFrame reports a protocol error. The session stays usable.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
