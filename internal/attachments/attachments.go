// Package attachments talks to the external binary store. The core
// only ever asks it to release a storage ID during cascade deletes;
// uploads happen client-side.
package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Store releases uploaded binaries by their opaque storage ID.
type Store interface {
	Release(ctx context.Context, storageID string) error
}

// RemoteStore posts destroy requests to the configured endpoint.
type RemoteStore struct {
	Endpoint string
	Client   *http.Client
}

func NewRemote(endpoint string) *RemoteStore {
	return &RemoteStore{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *RemoteStore) Release(ctx context.Context, storageID string) error {
	body, err := json.Marshal(map[string]string{"storageId": storageID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("attachment store returned %d for %s", resp.StatusCode, storageID)
	}
	return nil
}

// Disabled is used when no external store is configured; releases
// succeed without doing anything.
type Disabled struct{}

func (Disabled) Release(ctx context.Context, storageID string) error { return nil }
