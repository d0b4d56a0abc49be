package breach

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // mandated by the range API
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultPwnedURL is the public Pwned Passwords API base.
const DefaultPwnedURL = "https://api.pwnedpasswords.com"

const prefixLen = 5

// PwnedClient queries the Pwned Passwords range API. Only the first five
// hex characters of the password's SHA-1 digest leave the process.
// It is safe for concurrent use.
type PwnedClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewPwnedClient constructs a PwnedClient. An empty baseURL selects
// DefaultPwnedURL; a nil httpClient gets one with the given timeout.
func NewPwnedClient(httpClient *http.Client, baseURL string, timeout time.Duration) *PwnedClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if baseURL == "" {
		baseURL = DefaultPwnedURL
	}
	return &PwnedClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Leaked hashes password, fetches every suffix sharing its prefix and
// reports whether the remaining suffix is among them with a non-zero count.
// Padding entries returned with a zero count are ignored.
func (c *PwnedClient) Leaked(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password)) //nolint:gosec
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:prefixLen], digest[prefixLen:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return false, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Add-Padding", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, errors.Errorf("range lookup failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return scanRange(resp.Body, suffix)
}

// scanRange walks "SUFFIX:COUNT" lines looking for suffix.
func scanRange(r io.Reader, suffix string) (bool, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		candidate, count, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(candidate, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return false, errors.Wrapf(err, "malformed count for suffix %s", candidate)
		}
		return n > 0, nil
	}
	if err := sc.Err(); err != nil {
		return false, errors.Wrap(err, "could not read response body")
	}
	return false, nil
}

var _ Checker = (*PwnedClient)(nil)
