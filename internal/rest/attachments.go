package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/discord-terminal/engine/internal/codec"
)

// maxAttachmentBytes is the client-side reject threshold; the service's own
// limit is lower for most tiers but 200MB is the absolute ceiling worth
// refusing before ever opening a connection.
const maxAttachmentBytes = 200 * 1024 * 1024

// AttachmentManifest is one file entry in an upload-link request.
type AttachmentManifest struct {
	FileSize int64  `json:"file_size"`
	Filename string `json:"filename"`
	ID       int64  `json:"id"`
	IsClip   bool   `json:"is_clip"`
}

// AttachmentSlot is the upload target the service hands back for one
// requested file.
type AttachmentSlot struct {
	ID               string `json:"id"`
	UploadURL        string `json:"upload_url"`
	UploadFilename   string `json:"upload_filename"`
}

// AttachmentState tracks one pending attachment through its lifecycle:
// queued at request time, uploaded on success, or failed/too_large.
type AttachmentState int

const (
	AttachmentQueued AttachmentState = iota
	AttachmentUploaded
	AttachmentTooLarge
	_ // reserved, mirrors a gap in the source enum
	AttachmentFailed
)

// uploadRegistry tracks in-flight uploads keyed by upload URL so a caller
// can abort a single upload or every in-flight upload; either way the
// upload's context is cancelled, which tears down the underlying
// connection the way a socket shutdown would.
type uploadRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newUploadRegistry() *uploadRegistry {
	return &uploadRegistry{cancels: make(map[string]context.CancelFunc)}
}

func (r *uploadRegistry) register(uploadURL string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[uploadURL] = cancel
}

func (r *uploadRegistry) deregister(uploadURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, uploadURL)
}

// cancel stops one upload by URL, or every in-flight upload when url == "".
func (r *uploadRegistry) cancel(uploadURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if uploadURL != "" {
		if cancel, ok := r.cancels[uploadURL]; ok {
			cancel()
			delete(r.cancels, uploadURL)
		}
		return
	}
	for u, cancel := range r.cancels {
		cancel()
		delete(r.cancels, u)
	}
}

var attachmentIDCounter int64

func nextAttachmentID() int64 {
	return atomic.AddInt64(&attachmentIDCounter, 1)
}

// RequestAttachmentURL reserves an upload slot for a local file. A too-large
// file is rejected client-side before any request is made, matching the
// 200MB ceiling; the service's own 413 is still classified if it happens to
// be stricter.
func (c *Client) RequestAttachmentURL(ctx context.Context, channelID, path, customName string) Result[AttachmentSlot] {
	info, err := os.Stat(path)
	if err != nil {
		return Fail[AttachmentSlot](fmt.Errorf("rest: stat attachment: %w", err))
	}
	if info.Size() > maxAttachmentBytes {
		return APIErr[AttachmentSlot](ErrTooLarge, http.StatusRequestEntityTooLarge)
	}

	filename := customName
	if filename == "" {
		filename = filepath.Base(path)
	}

	payload := map[string]any{
		"files": []AttachmentManifest{{
			FileSize: info.Size(),
			Filename: filename,
			ID:       nextAttachmentID(),
		}},
	}

	resp, data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/attachments", channelID), payload)
	if err != nil {
		return Fail[AttachmentSlot](err)
	}
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return APIErr[AttachmentSlot](ErrTooLarge, resp.StatusCode)
	}
	if !ok(resp.StatusCode) {
		return Fail[AttachmentSlot](classify(resp, data))
	}

	var out struct {
		Attachments []AttachmentSlot `json:"attachments"`
	}
	if err := codec.Unmarshal(data, &out); err != nil {
		return Fail[AttachmentSlot](fmt.Errorf("rest: decode attachment slot: %w", err))
	}
	if len(out.Attachments) == 0 {
		return Fail[AttachmentSlot](&APIError{Kind: ErrOther, Status: resp.StatusCode})
	}
	return Ok(out.Attachments[0])
}

// UploadAttachment streams a local file's bytes to a reserved upload slot.
// The upload is registered in the cancel registry for the duration of the
// PUT so CancelUploading can abort it mid-transfer.
func (c *Client) UploadAttachment(ctx context.Context, uploadURL, path string) Result[struct{}] {
	f, err := os.Open(path)
	if err != nil {
		return Fail[struct{}](fmt.Errorf("rest: open attachment: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Fail[struct{}](fmt.Errorf("rest: stat attachment: %w", err))
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.uploads.register(uploadURL, cancel)
	defer c.uploads.deregister(uploadURL)

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPut, uploadURL, f)
	if err != nil {
		return Fail[struct{}](fmt.Errorf("rest: build upload request: %w", err))
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if u, err := url.Parse(uploadURL); err == nil {
		req.Header.Set("Origin", fmt.Sprintf("https://%s", u.Hostname()))
	}
	req.Header.Set("User-Agent", c.props.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Fail[struct{}](ErrOffline)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Fail[struct{}](&APIError{Kind: ErrOther, Status: resp.StatusCode})
	}
	return Ok(struct{}{})
}

// CancelUploading aborts one in-flight upload by its upload URL, or every
// in-flight upload when url is empty.
func (c *Client) CancelUploading(uploadURL string) {
	c.uploads.cancel(uploadURL)
}

// CancelAttachment deletes an already-uploaded (but not yet sent) attachment.
// A 429 here is treated as success: the service does not honor retries on
// this endpoint and the attachment is simply dropped from the pending send.
func (c *Client) CancelAttachment(ctx context.Context, attachmentName string) Result[struct{}] {
	path := fmt.Sprintf("/attachments/%s", url.PathEscape(attachmentName))
	resp, data, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusTooManyRequests {
		return Ok(struct{}{})
	}
	return Fail[struct{}](classify(resp, data))
}

// RefreshedURL pairs an original CDN URL with its refreshed replacement.
type RefreshedURL struct {
	Original  string `json:"original"`
	Refreshed string `json:"refreshed"`
}

// RefreshAttachmentURL requests a fresh signed URL for an expired attachment link.
func (c *Client) RefreshAttachmentURL(ctx context.Context, attachmentURL string) Result[string] {
	resp, data, err := c.do(ctx, http.MethodPost, "/attachments/refresh-urls",
		map[string]any{"attachment_urls": []string{attachmentURL}})
	if err != nil {
		return Fail[string](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[string](classify(resp, data))
	}
	var payload struct {
		RefreshedURLs []RefreshedURL `json:"refreshed_urls"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Fail[string](fmt.Errorf("rest: decode refreshed urls: %w", err))
	}
	if len(payload.RefreshedURLs) == 0 {
		return Fail[string](&APIError{Kind: ErrOther, Status: resp.StatusCode})
	}
	return Ok(payload.RefreshedURLs[0].Refreshed)
}

// CheckExpiredAttachmentURL reports whether attachmentURL is hosted on
// cdnHost and, if so, returns its query parameters, which include the hex
// "ex" expiry. The expiry is not decoded or compared with the current time
// here.
func CheckExpiredAttachmentURL(cdnHost, attachmentURL string) (url.Values, bool) {
	u, err := url.Parse(attachmentURL)
	if err != nil {
		return nil, false
	}
	if u.Host != cdnHost {
		return nil, false
	}
	return u.Query(), true
}

// SendVoiceMessage uploads an ogg voice clip and sends it as a flagged voice
// message (flag 8192), optionally as a reply.
func (c *Client) SendVoiceMessage(ctx context.Context, channelID, path string, durationSecs float64, waveform string, reply *MessageReference, replyPing bool) Result[Message] {
	slotResult := c.RequestAttachmentURL(ctx, channelID, path, "voice-message.ogg")
	if slotResult.Err != nil {
		return Fail[Message](slotResult.Err)
	}
	slot := slotResult.Value

	if res := c.UploadAttachment(ctx, slot.UploadURL, path); res.Err != nil {
		return Fail[Message](res.Err)
	}

	payload := map[string]any{
		"channel_id": channelID,
		"content":    "",
		"attachments": []map[string]any{{
			"id":                "0",
			"filename":          "voice-message.ogg",
			"uploaded_filename": slot.UploadFilename,
			"duration_secs":     durationSecs,
			"waveform":          waveform,
		}},
		"message_reference": nil,
		"flags":             8192,
		"type":              0,
		"sticker_ids":        []string{},
		"nonce":              GenerateNonce(),
	}
	if reply != nil {
		payload["message_reference"] = reply
		if !replyPing {
			allowed := map[string]any{"parse": []string{"users", "roles", "everyone"}}
			if reply.GuildID == "" {
				allowed["replied_user"] = false
			}
			payload["allowed_mentions"] = allowed
		}
	}

	resp, data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), payload)
	if err != nil {
		return Fail[Message](err)
	}
	if resp.StatusCode != http.StatusOK {
		return Fail[Message](classify(resp, data))
	}
	var msg Message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return Fail[Message](fmt.Errorf("rest: decode voice message: %w", err))
	}
	return Ok(msg)
}
