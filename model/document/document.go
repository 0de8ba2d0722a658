package document

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/model/plan"
)

// Origin identifies the producer class that deposited a document.
type Origin string

const (
	OriginFilesystem Origin = "filesystem"
	OriginEmail      Origin = "email"
	OriginChat       Origin = "chat"
	OriginERP        Origin = "erp"
)

// Priority of a task document.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Document represents a task document owned by the orchestrator. Producers
// hand off ownership on deposit and never mutate a document afterwards.
type Document struct {
	ID         string                 `json:"id"`
	Stage      Stage                  `json:"stage"`
	Origin     Origin                 `json:"origin"`
	Priority   Priority               `json:"priority,omitempty"`
	RiskAmount *float64               `json:"riskAmount,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Plan       *plan.Plan             `json:"plan,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// New creates a document destined for the inbox stage. When id is empty a
// stable identifier is derived from the payload content so that producer
// redelivery maps to the same document.
func New(id string, origin Origin, payload map[string]interface{}) *Document {
	now := clock.Now()
	ret := &Document{
		ID:        id,
		Stage:     StageInbox,
		Origin:    origin,
		Priority:  PriorityMedium,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ret.ID == "" {
		ret.ID = contentID(origin, payload)
	}
	return ret
}

// Touch updates the modification timestamp; callers persist afterwards.
func (d *Document) Touch() {
	d.UpdatedAt = clock.Now()
}

// Risk returns the monetary risk amount, zero when absent.
func (d *Document) Risk() float64 {
	if d.RiskAmount == nil {
		return 0
	}
	return *d.RiskAmount
}

// Clone returns a deep enough copy for safe mutation outside a store:
// the payload is copied recursively so nested maps and slices never
// alias store-internal state, the plan is cloned, scalar fields are
// shared by value.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Payload = clonePayload(d.Payload)
	out.Plan = d.Plan.Clone()
	return &out
}

func clonePayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(value interface{}) interface{} {
	switch actual := value.(type) {
	case map[string]interface{}:
		return clonePayload(actual)
	case []interface{}:
		out := make([]interface{}, len(actual))
		for i, item := range actual {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

// contentID derives a stable identifier from origin and payload so repeated
// deposits of the same source content collide on purpose.
func contentID(origin Origin, payload map[string]interface{}) string {
	h := sha1.New()
	h.Write([]byte(origin))
	// map iteration order is not stable; hash sorted key=value pairs
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte(stringify(payload[k])))
	}
	return hex.EncodeToString(h.Sum(nil))[:20]
}

func sortStrings(items []string) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j] < items[j-1]; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func stringify(value interface{}) string {
	switch actual := value.(type) {
	case string:
		return actual
	case nil:
		return ""
	default:
		data, _ := json.Marshal(actual)
		return string(data)
	}
}
