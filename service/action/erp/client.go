package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/viant/conveyor/retry"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
)

// DraftRequest asks the ERP to create a draft entry for later posting.
type DraftRequest struct {
	SubjectID string  `json:"subjectId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
	Memo      string  `json:"memo,omitempty"`
}

// DraftResponse identifies the created draft.
type DraftResponse struct {
	DraftID   string `json:"draftId"`
	Simulated bool   `json:"simulated,omitempty"`
}

// PostRequest posts a previously created draft.
type PostRequest struct {
	SubjectID string `json:"subjectId"`
	DraftID   string `json:"draftId"`
}

// PostResponse identifies the posted entry.
type PostResponse struct {
	EntryID   string `json:"entryId"`
	Simulated bool   `json:"simulated,omitempty"`
}

// Client abstracts the ERP backend so the live JSON-RPC transport can be
// swapped for a recorder in sandbox mode.
type Client interface {
	CreateDraft(ctx context.Context, request *DraftRequest) (*DraftResponse, error)
	Post(ctx context.Context, request *PostRequest) (*PostResponse, error)
}

// ClientConfig configures the live ERP client.
type ClientConfig struct {
	EndpointURL string `yaml:"endpointURL" json:"endpointURL"`
	Database    string `yaml:"database,omitempty" json:"database,omitempty"`
	// CredentialsURL points at a scy-encrypted basic credential resource.
	CredentialsURL string `yaml:"credentialsURL" json:"credentialsURL"`
	CredentialsKey string `yaml:"credentialsKey,omitempty" json:"credentialsKey,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("erp rpc error %v: %v", e.Code, e.Message)
}

// client talks JSON-RPC to a live ERP endpoint.
type client struct {
	config     ClientConfig
	httpClient *http.Client
	secrets    *scy.Service
}

// NewClient creates a live ERP client.
func NewClient(config ClientConfig) Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		secrets:    scy.New(),
	}
}

func (c *client) CreateDraft(ctx context.Context, request *DraftRequest) (*DraftResponse, error) {
	response := &DraftResponse{}
	err := c.call(ctx, "draft.create", map[string]any{
		"reference": request.SubjectID,
		"amount":    request.Amount,
		"currency":  request.Currency,
		"memo":      request.Memo,
	}, response)
	return response, err
}

func (c *client) Post(ctx context.Context, request *PostRequest) (*PostResponse, error) {
	response := &PostResponse{}
	err := c.call(ctx, "draft.post", map[string]any{
		"reference": request.SubjectID,
		"draftId":   request.DraftID,
	}, response)
	return response, err
}

func (c *client) call(ctx context.Context, method string, params map[string]any, result interface{}) error {
	basic, err := c.credentials(ctx)
	if err != nil {
		return retry.Permanent(err)
	}
	if c.config.Database != "" {
		params["db"] = c.config.Database
	}
	payload, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      time.Now().UnixNano(),
	})
	if err != nil {
		return retry.Permanent(err)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.EndpointURL, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.SetBasicAuth(basic.Username, basic.Password)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return retry.Transient(err)
	}
	defer httpResponse.Body.Close()

	switch {
	case httpResponse.StatusCode >= 500, httpResponse.StatusCode == http.StatusTooManyRequests:
		return retry.Transient(fmt.Errorf("erp endpoint returned %v", httpResponse.Status))
	case httpResponse.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("erp endpoint returned %v", httpResponse.Status))
	}
	rpc := &rpcResponse{}
	if err := json.NewDecoder(httpResponse.Body).Decode(rpc); err != nil {
		return retry.Transient(fmt.Errorf("failed to decode erp response: %w", err))
	}
	if rpc.Error != nil {
		return retry.Permanent(rpc.Error)
	}
	if err := json.Unmarshal(rpc.Result, result); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode erp result: %w", err))
	}
	return nil
}

func (c *client) credentials(ctx context.Context) (*cred.Basic, error) {
	resource := scy.NewResource(reflect.TypeOf(cred.Basic{}), c.config.CredentialsURL, c.config.CredentialsKey)
	secret, err := c.secrets.Load(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to load erp credentials from %v: %w", c.config.CredentialsURL, err)
	}
	basic, ok := secret.Target.(*cred.Basic)
	if !ok {
		return nil, fmt.Errorf("unexpected erp credential type %T", secret.Target)
	}
	return basic, nil
}
