package erp

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/service/action"
)

const name = "erp"

// Service exposes ERP draft bookkeeping as plan step actions. Draft
// identifiers are derived from the subject id on the ERP side, which
// makes both methods safe to re-attempt.
type Service struct {
	client Client
}

// New creates an ERP action service backed by the given client.
func New(client Client) *Service {
	return &Service{client: client}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() action.Signatures {
	return []action.Signature{
		{
			Name:        "createDraft",
			Description: "Creates a draft ERP entry for the document amount.",
			Input:       reflect.TypeOf(&DraftRequest{}),
			Output:      reflect.TypeOf(&DraftResponse{}),
			Idempotent:  true,
		},
		{
			Name:        "post",
			Description: "Posts a previously created draft entry.",
			Input:       reflect.TypeOf(&PostRequest{}),
			Output:      reflect.TypeOf(&PostResponse{}),
			Idempotent:  true,
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (action.Executable, error) {
	switch strings.ToLower(name) {
	case "createdraft":
		return s.createDraft, nil
	case "post":
		return s.post, nil
	default:
		return nil, action.NewMethodNotFoundError(name)
	}
}

func (s *Service) createDraft(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*DraftRequest)
	if !ok {
		return action.NewInvalidInputError(in)
	}
	output, ok := out.(*DraftResponse)
	if !ok {
		return action.NewInvalidOutputError(out)
	}
	if input.SubjectID == "" {
		return retry.Permanent(fmt.Errorf("draft request had no subject id"))
	}
	response, err := s.client.CreateDraft(ctx, input)
	if err != nil {
		return err
	}
	*output = *response
	return nil
}

func (s *Service) post(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*PostRequest)
	if !ok {
		return action.NewInvalidInputError(in)
	}
	output, ok := out.(*PostResponse)
	if !ok {
		return action.NewInvalidOutputError(out)
	}
	if input.DraftID == "" {
		return retry.Permanent(fmt.Errorf("post request had no draft id"))
	}
	response, err := s.client.Post(ctx, input)
	if err != nil {
		return err
	}
	*output = *response
	return nil
}
