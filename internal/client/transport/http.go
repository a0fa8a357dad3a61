package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// HTTPClient implements Client against the backend REST API. API calls
// and blob transfers use separate http.Clients because the byte PUT
// needs a much longer timeout than the JSON round trips.
type HTTPClient struct {
	baseURL     string
	accessToken string
	api         *http.Client
	blob        *http.Client
	log         logging.Logger
}

func NewHTTPClient(baseURL string, requestTimeout, uploadTimeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		api:     &http.Client{Timeout: requestTimeout},
		blob:    &http.Client{Timeout: uploadTimeout},
		log:     log,
	}
}

func (c *HTTPClient) SetAccessToken(token string) {
	c.accessToken = token
}

type prepareMetadataJSON struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type prepareRequestJSON struct {
	Filename    string              `json:"filename"`
	ContentType string              `json:"content_type"`
	Size        int64               `json:"size"`
	SHA256      string              `json:"sha256"`
	Metadata    prepareMetadataJSON `json:"metadata"`
}

type prepareResponseJSON struct {
	Duplicate       bool   `json:"duplicate"`
	ExistingMediaID string `json:"existing_media_id"`
	SkipUpload      bool   `json:"skip_upload"`
	UploadID        string `json:"upload_id"`
	StorageKey      string `json:"storage_key"`
	PresignedPutURL string `json:"presigned_put_url"`
	UploadURL       string `json:"upload_url"`
}

func (c *HTTPClient) Prepare(ctx context.Context, req PrepareRequest) (*PrepareOutcome, error) {
	body := prepareRequestJSON{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
		SHA256:      req.SHA256,
		Metadata:    prepareMetadataJSON{Width: req.Width, Height: req.Height},
	}

	var resp prepareResponseJSON
	if err := c.postJSON(ctx, "/media/upload/prepare", body, &resp); err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	outcome := &PrepareOutcome{
		Duplicate:       resp.Duplicate,
		SkipUpload:      resp.SkipUpload,
		ExistingMediaID: resp.ExistingMediaID,
		UploadID:        resp.UploadID,
		StorageKey:      resp.StorageKey,
		UploadURL:       resp.PresignedPutURL,
	}
	if outcome.UploadURL == "" {
		outcome.UploadURL = resp.UploadURL
	}

	c.log.Debug(ctx, "prepare outcome",
		"filename", req.Filename, "duplicate", outcome.Duplicate, "skip_upload", outcome.SkipUpload)
	return outcome, nil
}

func (c *HTTPClient) PutBytes(ctx context.Context, putURL string, file models.SelectedFile, onProgress func(int)) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	pr := newProgressReader(f, file.Size, onProgress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, pr)
	if err != nil {
		return fmt.Errorf("build put request: %w", err)
	}
	req.ContentLength = file.Size
	req.Header.Set("Content-Type", file.ContentType)

	resp, err := c.blob.Do(req)
	if err != nil {
		return c.mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}

	// empty files never tick the reader; make sure 100 is still reported
	if onProgress != nil && pr.lastPct < 100 {
		onProgress(100)
	}
	return nil
}

type completeRequestJSON struct {
	UploadID     string `json:"upload_id"`
	StorageKey   string `json:"storage_key"`
	AnalysisMode string `json:"analysis_mode"`
	TakenAt      string `json:"taken_at,omitempty"`
}

type completeResponseJSON struct {
	MediaID string `json:"media_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *HTTPClient) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	body := completeRequestJSON{
		UploadID:     req.UploadID,
		StorageKey:   req.StorageKey,
		AnalysisMode: string(req.Mode),
	}
	if !req.TakenAt.IsZero() {
		body.TakenAt = req.TakenAt.UTC().Format(time.RFC3339)
	}

	var resp completeResponseJSON
	if err := c.postJSON(ctx, "/media/upload/complete", body, &resp); err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	return &CompleteResult{
		MediaID: resp.MediaID,
		JobID:   resp.JobID,
		Status:  resp.Status,
		Message: resp.Message,
	}, nil
}

type groupItemJSON struct {
	UploadID   string `json:"upload_id"`
	StorageKey string `json:"storage_key"`
	SHA256     string `json:"sha256"`
}

type groupCompleteRequestJSON struct {
	Items        []groupItemJSON `json:"items"`
	PrimaryIndex int             `json:"primary_index"`
	AnalysisMode string          `json:"analysis_mode"`
}

type groupImageJSON struct {
	MediaID string `json:"media_id"`
}

type groupResponseJSON struct {
	GroupID     string           `json:"group_id"`
	TotalImages int              `json:"total_images"`
	AddedImages int              `json:"added_images"`
	Images      []groupImageJSON `json:"images"`
}

func toGroupResult(resp groupResponseJSON) *GroupResult {
	result := &GroupResult{
		GroupID:     resp.GroupID,
		TotalImages: resp.TotalImages,
		AddedImages: resp.AddedImages,
	}
	for _, img := range resp.Images {
		result.MediaIDs = append(result.MediaIDs, img.MediaID)
	}
	return result
}

func (c *HTTPClient) CompleteGroup(ctx context.Context, items []GroupItem, primaryIndex int, mode models.AnalysisMode) (*GroupResult, error) {
	body := groupCompleteRequestJSON{
		Items:        toGroupItemsJSON(items),
		PrimaryIndex: primaryIndex,
		AnalysisMode: string(mode),
	}

	var resp groupResponseJSON
	if err := c.postJSON(ctx, "/media/upload/group-complete", body, &resp); err != nil {
		return nil, fmt.Errorf("group complete: %w", err)
	}
	return toGroupResult(resp), nil
}

type addImagesRequestJSON struct {
	Items []groupItemJSON `json:"items"`
}

func (c *HTTPClient) AddToGroup(ctx context.Context, groupID string, items []GroupItem) (*GroupResult, error) {
	body := addImagesRequestJSON{Items: toGroupItemsJSON(items)}

	var resp groupResponseJSON
	if err := c.postJSON(ctx, "/media/"+url.PathEscape(groupID)+"/add-images", body, &resp); err != nil {
		return nil, fmt.Errorf("add to group %s: %w", groupID, err)
	}
	return toGroupResult(resp), nil
}

func toGroupItemsJSON(items []GroupItem) []groupItemJSON {
	out := make([]groupItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, groupItemJSON{UploadID: it.UploadID, StorageKey: it.StorageKey, SHA256: it.SHA256})
	}
	return out
}

type errorResponseJSON struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// postJSON performs an authenticated POST of body and decodes a 2xx
// response into out. Non-2xx responses and network failures are mapped
// to the shared sentinel errors.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.accessToken)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return c.mapError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return common.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var e errorResponseJSON
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &e) == nil && e.Message != "" {
			return fmt.Errorf("server error (%s): %s", resp.Status, e.Message)
		}
		if e.Error != "" {
			return fmt.Errorf("server error (%s): %s", resp.Status, e.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapError converts low-level network failures into the shared
// sentinels so upper layers can match with errors.Is.
func (c *HTTPClient) mapError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return fmt.Errorf("%w: timeout: %v", common.ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return err
}
