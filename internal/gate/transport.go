package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/candorhq/candor/internal/types"
	"go.uber.org/zap"
)

// Transport delivers an approved communication to the candidate.
type Transport interface {
	SendEmail(ctx context.Context, comm *types.Communication) error
}

// TransportError indicates delivery failed after the communication was
// claimed for sending. The communication stays in failed status and can be
// retried.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPTransport posts communications to an email provider's send endpoint.
type HTTPTransport struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPTransport(endpoint, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	CommunicationID string `json:"communication_id"`
	CandidateID     string `json:"candidate_id"`
	Subject         string `json:"subject"`
	Body            string `json:"body"`
}

func (t *HTTPTransport) SendEmail(ctx context.Context, comm *types.Communication) error {
	payload, err := json.Marshal(sendRequest{
		CommunicationID: comm.ID.String(),
		CandidateID:     comm.CandidateID.String(),
		Subject:         comm.Subject,
		Body:            comm.Body,
	})
	if err != nil {
		return &TransportError{Message: "failed to encode send request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Message: "failed to build send request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Message: "send request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Message: fmt.Sprintf("provider returned status %d", resp.StatusCode)}
	}
	return nil
}

// LogTransport logs sends instead of delivering them. Used in development
// and dry-run deployments.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) SendEmail(_ context.Context, comm *types.Communication) error {
	t.logger.Info("dry-run send",
		zap.String("communication_id", comm.ID.String()),
		zap.String("type", string(comm.Type)),
		zap.String("subject", comm.Subject))
	return nil
}
