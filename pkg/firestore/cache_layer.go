// Copyright 2025 Certen Protocol
//
// Package firestore's cache layer adapts Client into the semantic cache's
// DistributedLayer contract: a document-with-expiry store keyed by query
// hash, the closest available analog in the retrieved corpus to the
// spec's SETEX-keyed distributed KV (no Redis client exists in the pack).
package firestore

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/intentmesh/coordinator/pkg/semcache"
)

const cacheCollection = "semanticCache"

// cacheDoc is the Firestore document shape for a semcache.Entry.
type cacheDoc struct {
	Query         string    `firestore:"query"`
	QueryHash     string    `firestore:"queryHash"`
	Response      []byte    `firestore:"response"`
	ResponseHash  []byte    `firestore:"responseHash"`
	ProducerKey   string    `firestore:"producerKey"`
	Signature     []byte    `firestore:"signature"`
	Model         string    `firestore:"model"`
	ConfidenceBps int       `firestore:"confidenceBps"`
	Category      string    `firestore:"category"`
	CreatedAt     time.Time `firestore:"createdAt"`
	ExpiresAt     time.Time `firestore:"expiresAt"`
	HitCount      int       `firestore:"hitCount"`
}

// CacheLayer implements semcache.DistributedLayer over a Client.
type CacheLayer struct {
	client *Client
	ctx    context.Context
}

func NewCacheLayer(ctx context.Context, client *Client) *CacheLayer {
	return &CacheLayer{client: client, ctx: ctx}
}

func (l *CacheLayer) Get(key string) (*semcache.Entry, bool, error) {
	if !l.client.IsEnabled() {
		return nil, false, nil
	}

	snap, err := l.client.Collection(cacheCollection).Doc(key).Get(l.ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var doc cacheDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, err
	}

	e := &semcache.Entry{
		Query:         doc.Query,
		QueryHash:     doc.QueryHash,
		Response:      doc.Response,
		ProducerKey:   doc.ProducerKey,
		Signature:     doc.Signature,
		Model:         doc.Model,
		ConfidenceBps: doc.ConfidenceBps,
		Category:      semcache.Category(doc.Category),
		CreatedAt:     doc.CreatedAt,
		ExpiresAt:     doc.ExpiresAt,
		HitCount:      doc.HitCount,
	}
	copy(e.ResponseHash[:], doc.ResponseHash)
	return e, true, nil
}

func (l *CacheLayer) Set(key string, e *semcache.Entry, ttl time.Duration) error {
	if !l.client.IsEnabled() {
		return nil
	}

	doc := cacheDoc{
		Query:         e.Query,
		QueryHash:     e.QueryHash,
		Response:      e.Response,
		ResponseHash:  e.ResponseHash[:],
		ProducerKey:   e.ProducerKey,
		Signature:     e.Signature,
		Model:         e.Model,
		ConfidenceBps: e.ConfidenceBps,
		Category:      string(e.Category),
		CreatedAt:     e.CreatedAt,
		ExpiresAt:     e.ExpiresAt,
		HitCount:      e.HitCount,
	}

	_, err := l.client.Collection(cacheCollection).Doc(key).Set(l.ctx, doc)
	return err
}

func (l *CacheLayer) Delete(key string) error {
	if !l.client.IsEnabled() {
		return nil
	}
	_, err := l.client.Collection(cacheCollection).Doc(key).Delete(l.ctx)
	return err
}
