package comms

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/service/action"
)

const name = "comms"

// Sender delivers an outbound message.
type Sender interface {
	Send(ctx context.Context, message *Message) (*Receipt, error)
}

// Message is an outbound notification.
type Message struct {
	SubjectID string `json:"subjectId"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Receipt confirms a delivery attempt.
type Receipt struct {
	MessageID string `json:"messageId"`
	Simulated bool   `json:"simulated,omitempty"`
}

// Service exposes outbound messaging as a plan step action. Sending is
// deliberately NOT idempotent: re-running a send with unknown outcome
// could deliver the same message twice.
type Service struct {
	sender Sender
}

// New creates a comms action service backed by the given sender.
func New(sender Sender) *Service {
	return &Service{sender: sender}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() action.Signatures {
	return []action.Signature{
		{
			Name:        "send",
			Description: "Sends an outbound notification to a contact.",
			Input:       reflect.TypeOf(&Message{}),
			Output:      reflect.TypeOf(&Receipt{}),
			Idempotent:  false,
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (action.Executable, error) {
	switch strings.ToLower(name) {
	case "send":
		return s.send, nil
	default:
		return nil, action.NewMethodNotFoundError(name)
	}
}

func (s *Service) send(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Message)
	if !ok {
		return action.NewInvalidInputError(in)
	}
	output, ok := out.(*Receipt)
	if !ok {
		return action.NewInvalidOutputError(out)
	}
	if input.Recipient == "" {
		return retry.Permanent(fmt.Errorf("message had no recipient"))
	}
	receipt, err := s.sender.Send(ctx, input)
	if err != nil {
		return err
	}
	*output = *receipt
	return nil
}

// Recorder is a sandbox sender: it records every message and returns a
// simulated receipt.
type Recorder struct {
	mu       sync.Mutex
	messages []*Message
}

// NewRecorder creates a sandbox sender.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, message *Message) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return &Receipt{MessageID: fmt.Sprintf("sim-msg-%04d", len(r.messages)), Simulated: true}, nil
}

// Messages returns the recorded messages.
func (r *Recorder) Messages() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message{}, r.messages...)
}
