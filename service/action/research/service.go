package research

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/conveyor/internal/clock"
	"github.com/viant/conveyor/retry"
	"github.com/viant/conveyor/service/action"
)

const name = "research"

// Service produces research artifacts for a document. The artifact is
// written to the artifact store keyed by subject id, so re-running the
// step after a crash overwrites the same file.
type Service struct {
	fs          afs.Service
	artifactURL string
}

// Input defines a research request.
type Input struct {
	SubjectID string   `json:"subjectId"`
	Topic     string   `json:"topic"`
	Questions []string `json:"questions,omitempty"`
}

// Output holds the produced artifact location.
type Output struct {
	Summary     string `json:"summary"`
	ArtifactURL string `json:"artifactURL"`
}

// New creates a research service writing artifacts under artifactURL.
func New(artifactURL string) *Service {
	return &Service{
		fs:          afs.New(),
		artifactURL: url.Normalize(artifactURL, file.Scheme),
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() action.Signatures {
	return []action.Signature{
		{
			Name:        "collect",
			Description: "Collects research notes for a topic and writes a markdown artifact.",
			Input:       reflect.TypeOf(&Input{}),
			Output:      reflect.TypeOf(&Output{}),
			Idempotent:  true,
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (action.Executable, error) {
	switch strings.ToLower(name) {
	case "collect":
		return s.collect, nil
	default:
		return nil, action.NewMethodNotFoundError(name)
	}
}

func (s *Service) collect(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return action.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return action.NewInvalidOutputError(out)
	}
	if input.Topic == "" {
		return retry.Permanent(fmt.Errorf("research topic was empty"))
	}

	builder := &strings.Builder{}
	builder.WriteString(fmt.Sprintf("# Research: %s\n\n", input.Topic))
	builder.WriteString(fmt.Sprintf("Collected: %s\n\n", clock.Now().Format(time.RFC3339)))
	for _, question := range input.Questions {
		builder.WriteString(fmt.Sprintf("## %s\n\n(pending follow-up)\n\n", question))
	}

	subject := input.SubjectID
	if subject == "" {
		subject = slug(input.Topic)
	}
	URL := url.Join(s.artifactURL, subject+"_research.md")
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(builder.String())); err != nil {
		return fmt.Errorf("failed to write research artifact %v: %w", URL, err)
	}
	output.Summary = fmt.Sprintf("collected %v note(s) on %q", len(input.Questions), input.Topic)
	output.ArtifactURL = URL
	return nil
}

func slug(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, text)
}
