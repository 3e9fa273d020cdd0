package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "schedics/internal/log"
)

// downloadAPI resolves a Yandex.Disk public link into a direct download
// href (two-step download: resolve, then fetch).
const downloadAPI = "https://cloud-api.yandex.net/v1/disk/public/resources/download"

// DiskReader reads the schedule grid from an XLSX document published on
// Yandex.Disk. One Read is one outbound download; retry policy belongs
// to the caller.
type DiskReader struct {
	// APIBase is the resources/download endpoint; overridable in tests.
	APIBase string

	client     *http.Client
	publicLink string
	token      string
	scan       ScanOptions
}

// NewDiskReader creates a reader for the given public link. token is an
// optional OAuth token for documents that need one to be read; timeout
// bounds each HTTP request so a slow upstream cannot hang the caller.
func NewDiskReader(publicLink, token string, timeout time.Duration, scan ScanOptions) *DiskReader {
	return &DiskReader{
		APIBase:    downloadAPI,
		client:     &http.Client{Timeout: timeout},
		publicLink: publicLink,
		token:      token,
		scan:       scan,
	}
}

// Read downloads the workbook and scans it into raw schedule entries.
func (d *DiskReader) Read(ctx context.Context) ([]RawEntry, error) {
	href, err := d.resolveHref(ctx)
	if err != nil {
		return nil, err
	}

	body, err := d.download(ctx, href)
	if err != nil {
		return nil, err
	}

	appLog.Info("schedule document downloaded", "bytes", len(body))

	return ScanWorkbook(bytes.NewReader(body), d.scan)
}

func (d *DiskReader) resolveHref(ctx context.Context) (string, error) {
	u := d.APIBase + "?public_key=" + url.QueryEscape(d.publicLink)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: resolve download link: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: resolve download link: %s", ErrUnavailable, resp.Status)
	}

	var payload struct {
		Href string `json:"href"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode download link response: %v", ErrUnavailable, err)
	}
	if payload.Href == "" {
		return "", fmt.Errorf("%w: download link response has no href", ErrUnavailable)
	}
	return payload.Href, nil
}

func (d *DiskReader) download(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download document: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download document: %s", ErrUnavailable, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (d *DiskReader) authorize(req *http.Request) {
	if d.token != "" {
		req.Header.Set("Authorization", "OAuth "+d.token)
	}
}
