package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"dexpulse/internal/model"
)

const (
	defaultTimeout    = 30 * time.Second
	maxRetryAttempts  = 3
	retryInitialDelay = 500 * time.Millisecond
	maxBodyBytes      = 8 << 20
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// getJSON issues one GET and returns the raw body, decoding it into out when
// out is non-nil. Transport errors and 5xx responses are retried with backoff;
// any terminal failure comes back as a *model.FetchError.
func getJSON(ctx context.Context, client *http.Client, url string, out any) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(model.NewFetchError(model.ErrUnreachable, err))
			}

			resp, err := client.Do(req)
			if err != nil {
				return model.NewFetchError(model.ErrUnreachable, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := model.NewFetchError(model.ErrUnreachable, fmt.Errorf("status %d from %s", resp.StatusCode, url))
				if resp.StatusCode >= 500 {
					return err
				}
				return retry.Unrecoverable(err)
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return model.NewFetchError(model.ErrUnreachable, err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts),
		retry.Delay(retryInitialDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var fe *model.FetchError
		if !errors.As(err, &fe) {
			err = model.NewFetchError(model.ErrUnreachable, err)
		}
		return nil, err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, model.NewFetchError(model.ErrBadSchema, err)
		}
	}
	return body, nil
}
