package session

import (
	"encoding/json"
	"fmt"
)

// Action is a parsed client request. The set of implementations is closed:
// Subscribe, Unsubscribe, List, Ping and Unknown.
type Action interface {
	isAction()
}

// Subscribe adds sensors to the subscription set.
type Subscribe struct {
	// All is set when the request omitted sensors or sent null.
	All     bool
	Sensors []string
	// Interval is the requested push interval in milliseconds, nil if absent.
	Interval *int64
}

// Unsubscribe removes sensors from the subscription set.
type Unsubscribe struct {
	// All is set when the request omitted sensors or sent null.
	All     bool
	Sensors []string
}

// List asks for every available sensor name.
type List struct{}

// Ping asks for a pong.
type Ping struct{}

// Unknown is any action name the session does not recognize, including a
// missing or non-string action field.
type Unknown struct {
	Name string
}

func (Subscribe) isAction()   {}
func (Unsubscribe) isAction() {}
func (List) isAction()        {}
func (Ping) isAction()        {}
func (Unknown) isAction()     {}

// Action names on the wire.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionList        = "list"
	ActionPing        = "ping"
)

// ParseAction decodes one inbound text frame.
func ParseAction(data []byte) (Action, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidMessage)
	}

	raw, ok := fields["action"]
	if !ok {
		return Unknown{}, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return Unknown{Name: string(raw)}, nil
	}

	switch name {
	case ActionSubscribe:
		all, sensors, err := parseSensors(fields["sensors"])
		if err != nil {
			return nil, err
		}
		interval, err := parseInterval(fields["interval"])
		if err != nil {
			return nil, err
		}
		return Subscribe{All: all, Sensors: sensors, Interval: interval}, nil
	case ActionUnsubscribe:
		all, sensors, err := parseSensors(fields["sensors"])
		if err != nil {
			return nil, err
		}
		return Unsubscribe{All: all, Sensors: sensors}, nil
	case ActionList:
		return List{}, nil
	case ActionPing:
		return Ping{}, nil
	default:
		return Unknown{Name: name}, nil
	}
}

func parseSensors(raw json.RawMessage) (bool, []string, error) {
	if isNull(raw) {
		return true, nil, nil
	}
	var sensors []string
	if err := json.Unmarshal(raw, &sensors); err != nil {
		return false, nil, fmt.Errorf("%w: sensors: %v", ErrInvalidMessage, err)
	}
	if sensors == nil {
		sensors = []string{}
	}
	return false, sensors, nil
}

func parseInterval(raw json.RawMessage) (*int64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("%w: interval: %v", ErrInvalidMessage, err)
	}
	if ms < 0 {
		return nil, fmt.Errorf("%w: interval must not be negative", ErrInvalidMessage)
	}
	return &ms, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
