package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// Aria2Client implements domain.Downloader and domain.Submitter against an
// aria2 daemon's JSON-RPC interface. Transfers are addressed by a GID derived
// from the caller-assigned id, so the registry never has to track aria2's
// own identifiers.
type Aria2Client struct {
	rpcURL string
	secret string
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewAria2Client creates a new aria2 RPC client
func NewAria2Client(config *domain.Aria2Config, logger *zap.Logger) *Aria2Client {
	timeout := config.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aria2Client{
		rpcURL: config.RPCUrl,
		secret: config.Secret,
		dir:    config.DownloadDir,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GID returns the aria2 GID used for the given download id. aria2 requires
// exactly 16 hex characters.
func GID(id int64) string {
	return fmt.Sprintf("%016x", uint64(id))
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	ID      string        `json:"id"`
	Params  []interface{} `json:"params"`
}

type jsonRPCResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// tellStatusResult is the subset of aria2.tellStatus we ask for
type tellStatusResult struct {
	Status          string `json:"status"`
	CompletedLength string `json:"completedLength"`
	TotalLength     string `json:"totalLength"`
}

func (c *Aria2Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	// If a secret is set, it must be the first parameter as "token:secret"
	finalParams := make([]interface{}, 0, len(params)+1)
	if c.secret != "" {
		finalParams = append(finalParams, "token:"+c.secret)
	}
	finalParams = append(finalParams, params...)

	reqBody := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      "inferra",
		Params:  finalParams,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// CheckStatus queries aria2 for the current state of a transfer
func (c *Aria2Client) CheckStatus(ctx context.Context, id int64) (domain.StatusSnapshot, error) {
	result, err := c.call(ctx, "aria2.tellStatus", GID(id),
		[]string{"status", "completedLength", "totalLength"})
	if err != nil {
		return domain.StatusSnapshot{}, err
	}

	var status tellStatusResult
	if err := json.Unmarshal(result, &status); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("failed to decode tellStatus result: %w", err)
	}

	completed, err := strconv.ParseInt(status.CompletedLength, 10, 64)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("invalid completedLength %q: %w", status.CompletedLength, err)
	}
	total, err := strconv.ParseInt(status.TotalLength, 10, 64)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("invalid totalLength %q: %w", status.TotalLength, err)
	}

	return domain.StatusSnapshot{
		Status:          mapAria2Status(status.Status),
		BytesDownloaded: completed,
		TotalBytes:      total,
	}, nil
}

// CancelTransfer asks aria2 to remove a transfer
func (c *Aria2Client) CancelTransfer(ctx context.Context, id int64) error {
	if _, err := c.call(ctx, "aria2.remove", GID(id)); err != nil {
		return fmt.Errorf("failed to remove transfer: %w", err)
	}

	c.logger.Debug("Transfer removed", zap.Int64("id", id), zap.String("gid", GID(id)))
	return nil
}

// Submit starts a new transfer under the given id
func (c *Aria2Client) Submit(ctx context.Context, id int64, url string) error {
	options := map[string]string{"gid": GID(id)}
	if c.dir != "" {
		options["dir"] = c.dir
	}

	if _, err := c.call(ctx, "aria2.addUri", []string{url}, options); err != nil {
		return fmt.Errorf("failed to submit transfer: %w", err)
	}

	c.logger.Info("Transfer submitted",
		zap.Int64("id", id),
		zap.String("gid", GID(id)),
		zap.String("url", url))
	return nil
}

// mapAria2Status maps aria2's status strings onto the registry's status set
func mapAria2Status(status string) domain.DownloadStatus {
	switch status {
	case "active":
		return domain.StatusDownloading
	case "waiting", "paused":
		return domain.StatusQueued
	case "complete":
		return domain.StatusCompleted
	case "error":
		return domain.StatusFailed
	default:
		// "removed" and anything unrecognized
		return domain.StatusUnknown
	}
}
