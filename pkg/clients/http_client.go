package clients

import (
	"errors"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

var ErrFailedCloseResponseBody = errors.New("failed close response body")

type HTTPClientI interface {
	Do(req *http.Request) (*http.Response, error)
	Get(url string, headers http.Header) (statusCode int, respBody []byte, respHeaders http.Header, err error)
}

// HTTPClientAdapter wraps net/http with the request shape the outbox relay
// and the processor client share. Tests substitute HTTPClientI directly.
type HTTPClientAdapter struct {
	client *http.Client
}

func NewHTTPClient() *HTTPClientAdapter {
	return &HTTPClientAdapter{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (h *HTTPClientAdapter) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

func (h *HTTPClientAdapter) Get(url string, headers http.Header) (statusCode int, respBody []byte, respHeaders http.Header, err error) {
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header = headers

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() {
		if e := resp.Body.Close(); e != nil {
			err = errors.Join(err, ErrFailedCloseResponseBody)
		}
	}()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, respBody, resp.Header, nil
}
