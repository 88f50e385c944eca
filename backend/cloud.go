package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pithecene-io/macadam/creds"
	"github.com/pithecene-io/macadam/iox"
	"github.com/pithecene-io/macadam/types"
)

const (
	defaultBaseURL = "https://apis.roblox.com"

	assetsPath     = "/assets/v1/assets"
	userAssetsPath = "/assets/user-auth/v1/assets"
	operationsPath = "/assets/v1/operations"

	uploadDescription    = "Uploaded by macadam"
	maxDisplayNameLength = 50

	// maxOperationPolls bounds how long we wait for the service to
	// finish processing an accepted upload.
	maxOperationPolls = 10
)

// CloudConfig configures the networked backend.
type CloudConfig struct {
	// BaseURL overrides the service endpoint (tests, staging).
	BaseURL string
	// Creds supplies the API key and, for user-auth uploads, the cookie.
	Creds creds.Credentials
	// Creator is the identity assets are created under.
	Creator types.Creator
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
	// PollInterval is the initial operation-poll delay (default 1s).
	PollInterval time.Duration
}

// Cloud uploads assets to the remote asset-hosting service. Uploads are
// accepted asynchronously: a successful create returns an operation that
// is polled until the service assigns the asset identifier.
type Cloud struct {
	cfg    CloudConfig
	client *http.Client

	// The service hands out a csrf token on first rejection; it is
	// cached and replayed on subsequent calls.
	mu        sync.Mutex
	csrfToken string
}

// NewCloud creates the networked backend.
func NewCloud(cfg CloudConfig) *Cloud {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Cloud{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Cloud) UploadImage(ctx context.Context, a Asset) (string, error) {
	return c.upload(ctx, a, "Decal", nil, false)
}

func (c *Cloud) UploadAudio(ctx context.Context, a Asset) (string, error) {
	return c.upload(ctx, a, "Audio", nil, false)
}

func (c *Cloud) UploadVideo(ctx context.Context, a Asset, expectedPrice uint32) (string, error) {
	return c.upload(ctx, a, "Video", &expectedPrice, true)
}

func (c *Cloud) UploadModel(ctx context.Context, a Asset) (string, error) {
	return c.upload(ctx, a, "Model", nil, false)
}

func (c *Cloud) UploadAnimation(ctx context.Context, a Asset) (string, error) {
	return c.upload(ctx, a, "Animation", nil, true)
}

// Wire shapes for the asset-creation API.
type assetRequest struct {
	AssetType       string          `json:"assetType"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description"`
	CreationContext creationContext `json:"creationContext"`
}

type creationContext struct {
	Creator       creatorPayload `json:"creator"`
	ExpectedPrice *uint32        `json:"expectedPrice,omitempty"`
}

type creatorPayload struct {
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

type operationPayload struct {
	Done        bool   `json:"done"`
	OperationID string `json:"operationId"`
	Response    *struct {
		AssetID string `json:"assetId"`
	} `json:"response"`
}

// upload submits the processed bytes and polls the returned operation
// until the service assigns an identifier. Animation and video uploads
// go through the user-auth endpoint with the session cookie; everything
// else authenticates with the API key.
func (c *Cloud) upload(ctx context.Context, a Asset, assetType string, expectedPrice *uint32, userAuth bool) (string, error) {
	payload := assetRequest{
		AssetType:   assetType,
		DisplayName: trimDisplayName(a.FileName),
		Description: uploadDescription,
		CreationContext: creationContext{
			Creator:       c.creatorPayload(),
			ExpectedPrice: expectedPrice,
		},
	}
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return "", NewUploadError(ErrInvalidContent, "upload", a.Key, err)
	}

	url := c.cfg.BaseURL + assetsPath
	if userAuth {
		url = c.cfg.BaseURL + userAssetsPath
	}

	csrfRetried := false
	for {
		req, err := c.newMultipartRequest(ctx, url, string(reqJSON), a)
		if err != nil {
			return "", NewUploadError(ErrInvalidContent, "upload", a.Key, err)
		}
		if userAuth {
			req.Header.Set("Cookie", c.cfg.Creds.Cookie)
		} else {
			req.Header.Set("x-api-key", c.cfg.Creds.APIKey)
		}

		status, body, err := c.send(req)
		if err != nil {
			return "", NewUploadError(classifyNetErr(err), "upload", a.Key, err)
		}

		// A 403 carrying a fresh csrf token is a handshake, not a
		// rejection; replay the call once with the token attached.
		if status == http.StatusForbidden && !csrfRetried {
			if token := c.takeCSRF(body.header); token != "" {
				csrfRetried = true
				continue
			}
		}

		if kind := classifyStatus(status); kind != nil {
			if errors.Is(kind, ErrInvalidContent) && looksModerated(body.text) {
				kind = ErrModerationRejected
			}
			return "", NewUploadError(kind, "upload", a.Key, fmt.Errorf("status %d: %s", status, snippet(body.text)))
		}

		var op operationPayload
		if err := json.Unmarshal([]byte(body.text), &op); err != nil {
			return "", NewUploadError(ErrServerFault, "upload", a.Key, fmt.Errorf("malformed operation response: %w", err))
		}
		return c.pollOperation(ctx, a.Key, op)
	}
}

func (c *Cloud) creatorPayload() creatorPayload {
	id := strconv.FormatUint(c.cfg.Creator.ID, 10)
	if c.cfg.Creator.Type == types.CreatorGroup {
		return creatorPayload{GroupID: id}
	}
	return creatorPayload{UserID: id}
}

func (c *Cloud) newMultipartRequest(ctx context.Context, url, reqJSON string, a Asset) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("request", reqJSON); err != nil {
		return nil, err
	}

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="fileContent"; filename=%q`, a.FileName))
	hdr.Set("Content-Type", MIMEForExt(a.Ext))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(a.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token := c.currentCSRF(); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	return req, nil
}

// responseBody pairs the drained body text with the response headers.
type responseBody struct {
	text   string
	header http.Header
}

func (c *Cloud) send(req *http.Request) (int, responseBody, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, responseBody{}, err
	}
	defer iox.DiscardClose(resp.Body)

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, responseBody{}, err
	}
	return resp.StatusCode, responseBody{text: string(text), header: resp.Header}, nil
}

// pollOperation waits for the accepted upload to finish processing,
// doubling the delay between polls up to the attempt ceiling.
func (c *Cloud) pollOperation(ctx context.Context, key types.LogicalKey, op operationPayload) (string, error) {
	delay := c.cfg.PollInterval

	for attempt := 0; ; attempt++ {
		if op.Done {
			if op.Response == nil || op.Response.AssetID == "" {
				return "", NewUploadError(ErrServerFault, "poll", key, errors.New("operation completed without an asset id"))
			}
			return op.Response.AssetID, nil
		}
		if attempt == maxOperationPolls {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+operationsPath+"/"+op.OperationID, nil)
		if err != nil {
			return "", NewUploadError(ErrServerFault, "poll", key, err)
		}
		req.Header.Set("x-api-key", c.cfg.Creds.APIKey)
		if token := c.currentCSRF(); token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}

		status, body, err := c.send(req)
		if err != nil {
			return "", NewUploadError(classifyNetErr(err), "poll", key, err)
		}
		if kind := classifyStatus(status); kind != nil {
			return "", NewUploadError(kind, "poll", key, fmt.Errorf("status %d: %s", status, snippet(body.text)))
		}

		if err := json.Unmarshal([]byte(body.text), &op); err != nil {
			return "", NewUploadError(ErrServerFault, "poll", key, fmt.Errorf("malformed operation response: %w", err))
		}
	}

	return "", NewUploadError(ErrServerFault, "poll", key, fmt.Errorf("operation %s not done after %d polls", op.OperationID, maxOperationPolls))
}

func (c *Cloud) currentCSRF() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

// takeCSRF caches a csrf token from a 403 response, returning it, or ""
// when the response carried none.
func (c *Cloud) takeCSRF(header http.Header) string {
	token := header.Get("x-csrf-token")
	if token == "" {
		return ""
	}
	c.mu.Lock()
	c.csrfToken = token
	c.mu.Unlock()
	return token
}

// classifyNetErr maps transport-level failures onto the retryable
// sentinels: timeouts keep their own kind, everything else is treated
// as a transient fault.
func classifyNetErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}
	return ErrServerFault
}

func looksModerated(body string) bool {
	return strings.Contains(strings.ToLower(body), "moderat")
}

// snippet truncates response bodies for error messages.
func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func trimDisplayName(name string) string {
	if len(name) > maxDisplayNameLength {
		return name[len(name)-maxDisplayNameLength:]
	}
	return name
}

var _ Backend = (*Cloud)(nil)
