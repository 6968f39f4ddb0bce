// Copyright 2025 Certen Protocol
//
// IPFSBackend talks to a local or remote IPFS HTTP API, grounded on the
// same http.Client request/response idiom as
// pkg/batch/peer_manager.go's HTTPPeerManager. Requests are built with
// http.NewRequest and carry no caller context; the client's 30s timeout
// bounds each call.

package contentstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// IPFSBackend implements Backend against an IPFS node's HTTP API
// (the default devnet endpoint is http://127.0.0.1:5001).
type IPFSBackend struct {
	endpoint string
	client   *http.Client
}

func NewIPFSBackend(endpoint string) *IPFSBackend {
	return &IPFSBackend{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type ipfsAddResponse struct {
	Hash string `json:"Hash"`
}

// Put uploads data via /api/v0/add and returns the IPFS content hash.
func (b *IPFSBackend) Put(data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "blob")
	if err != nil {
		return "", fmt.Errorf("contentstore: create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("contentstore: write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("contentstore: close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, b.endpoint+"/api/v0/add", &body)
	if err != nil {
		return "", fmt.Errorf("contentstore: build add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contentstore: add request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("contentstore: read add response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("contentstore: ipfs add returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out ipfsAddResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("contentstore: parse add response: %w", err)
	}
	return out.Hash, nil
}

// Get retrieves data via /api/v0/cat.
func (b *IPFSBackend) Get(cid string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, b.endpoint+"/api/v0/cat?arg="+cid, nil)
	if err != nil {
		return nil, fmt.Errorf("contentstore: build cat request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentstore: cat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("contentstore: read cat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contentstore: ipfs cat returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
