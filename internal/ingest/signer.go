package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
)

// Signer authenticates an ingestion request before it is sent. The batching
// logic in Shipper works with any Signer unchanged.
type Signer interface {
	Sign(req *http.Request, body []byte) error
}

// SharedKeySigner computes the workspace shared-key HMAC signature over
// {verb, body length, content type, date header, resource path}.
type SharedKeySigner struct {
	WorkspaceID string
	// WorkspaceKey is the base64-encoded shared secret.
	WorkspaceKey string
}

func (s SharedKeySigner) Sign(req *http.Request, body []byte) error {
	key, err := base64.StdEncoding.DecodeString(s.WorkspaceKey)
	if err != nil {
		return fmt.Errorf("decode workspace key: %w", err)
	}
	stringToSign := fmt.Sprintf("POST\n%d\napplication/json\nx-ms-date:%s\n/api/logs",
		len(body), req.Header.Get("x-ms-date"))
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	req.Header.Set("Authorization", fmt.Sprintf("SharedKey %s:%s", s.WorkspaceID, signature))
	return nil
}

// BearerSigner attaches a resource-scoped bearer token from the shared cache
// instead of a shared-key signature.
type BearerSigner struct {
	Tokens   TokenSource
	Resource string
}

func (s BearerSigner) Sign(req *http.Request, body []byte) error {
	token, err := s.Tokens.Token(req.Context(), s.Resource)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
