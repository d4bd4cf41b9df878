package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type webhook struct {
	client *http.Client
	url    string
}

// NewWebhook returns a notifier that POSTs every notification as JSON to url.
// A 5xx or 429 response reports the message as not accepted so it can be
// tried again; any other non-2xx response is an ErrRejected error.
func NewWebhook(client *http.Client, url string) Notifier {
	return Notifier{d: webhook{client: client, url: url}}
}

func (w webhook) deliver(ctx context.Context, m Message) (bool, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return false, nil
	default:
		return false, fmt.Errorf("%w: webhook refused %s notification: %s", ErrRejected, m.Event, resp.Status)
	}
}
