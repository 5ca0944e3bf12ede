// Package hedera talks to the notary service that submits claim payloads to
// the Hedera Consensus Service, and to the public mirror node used to confirm
// consensus records.
package hedera

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veritrace/veritrace-backend/pkg/config"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

const (
	notarizePath = "/api/v1/messages"
	healthPath   = "/healthz"
)

var (
	errLoggerRequired  = errors.New("hedera logger is required")
	errNotaryRequired  = errors.New("hedera notary base url is required")
	errTopicIDRequired = errors.New("hedera topic id is required")
)

// Gateway is the ledger surface the verification core depends on. The real
// client and test fakes both satisfy it.
type Gateway interface {
	Notarize(ctx context.Context, params NotarizeParams) (*Receipt, error)
	Confirm(ctx context.Context, transactionID string) (*ConsensusRecord, error)
	Health(ctx context.Context) error
}

// NotarizeParams is the claim payload submitted to the consensus topic.
type NotarizeParams struct {
	ClaimID          string `json:"claim_id"`
	ProductID        string `json:"product_id"`
	BatchID          string `json:"batch_id"`
	ClaimType        string `json:"claim_type"`
	ClaimDescription string `json:"claim_description"`
}

// Receipt is returned by the notary service after a successful submission.
type Receipt struct {
	TransactionID      string `json:"transaction_id"`
	ConsensusTimestamp string `json:"consensus_timestamp"`
	TopicID            string `json:"topic_id"`
	SequenceNumber     int64  `json:"sequence_number"`
}

// ConsensusRecord is the mirror-node view of a settled transaction.
type ConsensusRecord struct {
	TransactionID      string
	ConsensusTimestamp string
	TopicID            string
	SequenceNumber     int64
	Result             string
}

// Settled reports whether the ledger accepted the transaction.
func (r *ConsensusRecord) Settled() bool {
	return r != nil && strings.EqualFold(r.Result, "SUCCESS")
}

// Client exposes notarization and confirmation with centralized logging and
// error mapping.
type Client struct {
	http          *http.Client
	notaryBaseURL string
	mirrorBaseURL string
	topicID       string
	network       string
	logger        *logger.Logger
}

// NewClient validates the configuration and wires the HTTP transport. The
// timeout bounds individual requests; callers add their own retry policy on
// top.
func NewClient(cfg config.HederaConfig, timeout time.Duration, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	notary := strings.TrimRight(strings.TrimSpace(cfg.NotaryBaseURL), "/")
	if notary == "" {
		return nil, errNotaryRequired
	}
	topicID := strings.TrimSpace(cfg.TopicID)
	if topicID == "" {
		return nil, errTopicIDRequired
	}
	network := cfg.NormalizedNetwork()
	mirror := strings.TrimRight(strings.TrimSpace(cfg.MirrorBaseURL), "/")
	if mirror == "" {
		mirror = fmt.Sprintf("https://%s.mirrornode.hedera.com", network)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:          &http.Client{Timeout: timeout},
		notaryBaseURL: notary,
		mirrorBaseURL: mirror,
		topicID:       topicID,
		network:       network,
		logger:        logg,
	}, nil
}

// TopicID returns the consensus topic claims are notarized on.
func (c *Client) TopicID() string {
	if c == nil {
		return ""
	}
	return c.topicID
}

// Network reports the configured ledger network.
func (c *Client) Network() string {
	if c == nil {
		return ""
	}
	return c.network
}

// Notarize submits a claim payload to the consensus topic via the notary
// service.
func (c *Client) Notarize(ctx context.Context, params NotarizeParams) (*Receipt, error) {
	body, err := json.Marshal(struct {
		TopicID string         `json:"topic_id"`
		Message NotarizeParams `json:"message"`
	}{TopicID: c.topicID, Message: params})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding notarize payload")
	}

	c.log(ctx, "request", "notarize", map[string]any{
		"claim_id": params.ClaimID,
		"batch_id": params.BatchID,
		"topic_id": c.topicID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.notaryBaseURL+notarizePath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building notarize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		mapped := c.mapTransportError(err, "notarize")
		c.log(ctx, "error", "notarize", map[string]any{"error": err.Error()})
		return nil, mapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := c.mapStatusError(resp, "notarize")
		c.log(ctx, "error", "notarize", map[string]any{
			"status": resp.StatusCode,
			"error":  mapped.Error(),
		})
		return nil, mapped
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding notarize response")
	}
	if receipt.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notary response missing transaction id")
	}
	if receipt.TopicID == "" {
		receipt.TopicID = c.topicID
	}

	c.log(ctx, "response", "notarize", map[string]any{
		"transaction_id":      receipt.TransactionID,
		"consensus_timestamp": receipt.ConsensusTimestamp,
	})
	return &receipt, nil
}

// Confirm looks up a transaction on the mirror node and reports its consensus
// record.
func (c *Client) Confirm(ctx context.Context, transactionID string) (*ConsensusRecord, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	c.log(ctx, "request", "confirm", map[string]any{"transaction_id": transactionID})

	endpoint := fmt.Sprintf("%s/api/v1/transactions/%s", c.mirrorBaseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building confirm request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		mapped := c.mapTransportError(err, "confirm")
		c.log(ctx, "error", "confirm", map[string]any{"error": err.Error()})
		return nil, mapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := c.mapStatusError(resp, "confirm")
		c.log(ctx, "error", "confirm", map[string]any{
			"status": resp.StatusCode,
			"error":  mapped.Error(),
		})
		return nil, mapped
	}

	var payload struct {
		Transactions []struct {
			TransactionID      string `json:"transaction_id"`
			ConsensusTimestamp string `json:"consensus_timestamp"`
			EntityID           string `json:"entity_id"`
			Result             string `json:"result"`
			TopicSequence      int64  `json:"topic_sequence_number"`
		} `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding confirm response")
	}
	if len(payload.Transactions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found on mirror node")
	}

	tx := payload.Transactions[0]
	record := &ConsensusRecord{
		TransactionID:      tx.TransactionID,
		ConsensusTimestamp: tx.ConsensusTimestamp,
		TopicID:            tx.EntityID,
		SequenceNumber:     tx.TopicSequence,
		Result:             tx.Result,
	}

	c.log(ctx, "response", "confirm", map[string]any{
		"transaction_id": record.TransactionID,
		"result":         record.Result,
	})
	return record, nil
}

// Health probes the notary service. A nil return means the service answered
// with a 2xx.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.notaryBaseURL+healthPath, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building health request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(err, "health")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("notary health returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) mapTransportError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("hedera %s timed out", op))
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("hedera %s timed out", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("hedera %s failed", op))
}

func (c *Client) mapStatusError(resp *http.Response, op string) error {
	message := fmt.Sprintf("hedera %s returned status %d", op, resp.StatusCode)
	if detail := readErrorDetail(resp.Body); detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	return pkgerrors.New(codeForStatus(resp.StatusCode), message)
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return pkgerrors.CodeTimeout
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= 500:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeDependency
	}
}

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("hedera %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("hedera %s", phase))
	}
}
