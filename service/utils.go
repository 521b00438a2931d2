package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// RetryBackoff is the unit of the exponential backoff of GetBodyRetryReq
var RetryBackoff = time.Second

// HTTPError is returned when the server answers with an unexpected status code
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e HTTPError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

// GetBodyRetryReq sends the request with N retries in case of temporary errors and returns the body of the response.
// The request body, if any, must be rewindable (req.GetBody).
// A 4xx status (except 408 and 429) is returned at once as a fatal HTTPError.
// Other failures are retried and the last error is returned.
func GetBodyRetryReq(client *http.Client, req *http.Request, nbRetries int) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx := req.Context()
	var err error
	for i := range nbRetries + 1 {
		// Exponential backoff, starting at 0
		select {
		case <-ctx.Done():
			return nil, MergeErrors(true, err, ctx.Err())
		case <-time.After(((1 << i) - 1) * RetryBackoff):
		}
		var body []byte
		if body, err = doRequest(client, req); err == nil {
			return body, nil
		}
		if Fatal(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, MakeFatal(fmt.Errorf("GetBody: %w", err))
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	resp, err := client.Do(req)
	if err != nil {
		var e *neturl.Error
		if errors.As(err, &e) && (e.Timeout() || errors.Is(err, io.ErrUnexpectedEOF)) {
			return nil, MakeTemporary(err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		herr := HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
		if !TemporaryStatusCode(resp.StatusCode) {
			return nil, MakeFatal(herr)
		}
		return nil, MakeTemporary(herr)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, MakeTemporary(fmt.Errorf("ReadAll: %w", err))
	}
	return body, nil
}
