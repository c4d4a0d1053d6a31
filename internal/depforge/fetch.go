package depforge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Fetcher downloads url into dest. dest must only exist once the transfer
// completed; implementations write to a temporary name and rename.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// SchemeFetcher routes object storage URLs (gs://, s3://) to Objects and
// everything else to HTTP.
type SchemeFetcher struct {
	HTTP    Fetcher
	Objects Fetcher
}

var _ Fetcher = (*SchemeFetcher)(nil)

func (s *SchemeFetcher) Fetch(ctx context.Context, url, dest string) error {
	if isObjectURL(url) {
		if s.Objects == nil {
			return configErrorf("no object storage transport configured for %s", url)
		}
		return s.Objects.Fetch(ctx, url, dest)
	}
	if s.HTTP == nil {
		return configErrorf("no http transport configured for %s", url)
	}
	return s.HTTP.Fetch(ctx, url, dest)
}

func isObjectURL(url string) bool {
	return strings.HasPrefix(url, "gs://") || strings.HasPrefix(url, "s3://")
}

// partPath is where an in-flight download is written before being renamed.
func partPath(dest string) string { return dest + ".part" }

// commitDownload moves a completed transfer into place.
func commitDownload(dest string) error {
	if err := os.Rename(partPath(dest), dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// HTTPFetcher downloads over http(s)/ftp: curl first, then wget, then the
// native Go client.
type HTTPFetcher struct {
	Runner CommandRunner
	// Client overrides the native client; nil builds one with newHTTPClient.
	Client *http.Client
	// NativeOnly skips curl and wget.
	NativeOnly bool
	// Progress renders a progress bar for native downloads.
	Progress io.Writer
}

var _ Fetcher = (*HTTPFetcher)(nil)

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	// Some mirrors are slow to complete the handshake.
	transport.TLSHandshakeTimeout = 30 * time.Second

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Minute, // large archives such as boost
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
	}
	part := partPath(dest)
	_ = os.Remove(part)

	if !h.NativeOnly && h.Runner != nil {
		err := h.fetchExternal(url, part)
		if err == nil {
			return commitDownload(dest)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		debugf("external download of %s failed, using native client: %v", url, err)
		_ = os.Remove(part)
	}

	if err := h.fetchNative(ctx, url, part); err != nil {
		_ = os.Remove(part)
		return err
	}
	return commitDownload(dest)
}

func (h *HTTPFetcher) fetchExternal(url, part string) error {
	if _, err := exec.LookPath("curl"); err == nil {
		cmd := exec.Command("curl", "-L", "--fail", "-#", "-o", part, url)
		if err := h.Runner.Run(cmd); err == nil {
			return nil
		}
		debugf("curl failed, falling back to wget")
	}
	if _, err := exec.LookPath("wget"); err == nil {
		return h.Runner.Run(exec.Command("wget", "-nv", "-O", part, url))
	}
	return errors.New("neither curl nor wget is available")
}

func (h *HTTPFetcher) fetchNative(ctx context.Context, url, part string) error {
	client := h.Client
	if client == nil {
		client = newHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid download url %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("native http get failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed with status: %s", url, resp.Status)
	}

	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", part, err)
	}

	var w io.Writer = out
	if h.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(h.Progress),
			progressbar.OptionSetDescription(filepath.Base(strings.TrimSuffix(part, ".part"))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		w = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write to destination file: %w", err)
	}
	return out.Close()
}

// terminalProgress returns stderr when it is a terminal, nil otherwise.
func terminalProgress() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return os.Stderr
	}
	return nil
}
