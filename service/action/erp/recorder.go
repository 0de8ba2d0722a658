package erp

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is a sandbox ERP client: it records every call and returns
// deterministic simulated identifiers without touching a live system.
type Recorder struct {
	mu     sync.Mutex
	drafts []*DraftRequest
	posts  []*PostRequest
}

// NewRecorder creates a sandbox ERP client.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) CreateDraft(_ context.Context, request *DraftRequest) (*DraftResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, request)
	return &DraftResponse{DraftID: fmt.Sprintf("sim-draft-%s", request.SubjectID), Simulated: true}, nil
}

func (r *Recorder) Post(_ context.Context, request *PostRequest) (*PostResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, request)
	return &PostResponse{EntryID: fmt.Sprintf("sim-entry-%s", request.DraftID), Simulated: true}, nil
}

// Drafts returns the recorded draft requests.
func (r *Recorder) Drafts() []*DraftRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*DraftRequest{}, r.drafts...)
}

// Posts returns the recorded post requests.
func (r *Recorder) Posts() []*PostRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*PostRequest{}, r.posts...)
}
