// Package search keeps user profiles in an OpenSearch index so the friend
// search does not have to scan the users collection.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"eventconnect_services/src/models"

	"github.com/opensearch-project/opensearch-go/opensearchapi"
)

// DefaultSize caps the hits returned by one search.
const DefaultSize = 50

const indexMapping = `{
	"settings": {"index": {"number_of_shards": 1, "number_of_replicas": 1}},
	"mappings": {
		"properties": {
			"id":           {"type": "keyword"},
			"display_name": {"type": "text"},
			"email":        {"type": "keyword"},
			"photo_url":    {"type": "keyword", "index": false},
			"lookup":       {"type": "keyword"}
		}
	}
}`

// UserIndex reads and writes the user search index. The transport is
// usually an *opensearch.Client.
type UserIndex struct {
	transport opensearchapi.Transport
	index     string
}

func NewUserIndex(transport opensearchapi.Transport, index string) *UserIndex {
	return &UserIndex{transport: transport, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (u *UserIndex) EnsureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{u.index}}.Do(ctx, u.transport)
	if err != nil {
		return fmt.Errorf("check index %s: %w", u.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	created, err := opensearchapi.IndicesCreateRequest{
		Index: u.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, u.transport)
	if err != nil {
		return fmt.Errorf("create index %s: %w", u.index, err)
	}
	return drain(created, "create index "+u.index)
}

func (u *UserIndex) IndexUser(ctx context.Context, user models.User) error {
	if user.UID == "" {
		return fmt.Errorf("index user: missing uid")
	}
	body, err := json.Marshal(models.NewUserSearchDocument(user))
	if err != nil {
		return err
	}
	response, err := opensearchapi.IndexRequest{
		Index:      u.index,
		DocumentID: user.UID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, u.transport)
	if err != nil {
		return fmt.Errorf("index user %s: %w", user.UID, err)
	}
	return drain(response, "index user "+user.UID)
}

// SearchUsers returns the profiles whose name or email contains query,
// ignoring case.
func (u *UserIndex) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	body, err := SearchBody(query, DefaultSize)
	if err != nil {
		return nil, err
	}
	response, err := opensearchapi.SearchRequest{
		Index: []string{u.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, u.transport)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer response.Body.Close()
	if response.IsError() {
		return nil, fmt.Errorf("search users: %s", response.Status())
	}
	return ParseHits(response.Body)
}

// Reindex writes users in one bulk request and returns how many were sent.
func (u *UserIndex) Reindex(ctx context.Context, users []models.User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	body, count, err := BulkBody(users)
	if err != nil || count == 0 {
		return 0, err
	}
	response, err := opensearchapi.BulkRequest{
		Index: u.index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, u.transport)
	if err != nil {
		return 0, fmt.Errorf("bulk index users: %w", err)
	}
	if err := drain(response, "bulk index users"); err != nil {
		return 0, err
	}
	return count, nil
}

func drain(response *opensearchapi.Response, op string) error {
	defer response.Body.Close()
	if response.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("%s: %s %s", op, response.Status(), bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// SearchBody builds a case-insensitive substring query on the lookup field.
func SearchBody(query string, size int) ([]byte, error) {
	pattern := "*" + wildcardEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "*"
	return json.Marshal(map[string]any{
		"size": size,
		"query": map[string]any{
			"wildcard": map[string]any{
				"lookup": map[string]any{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		},
	})
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string                    `json:"_id"`
			Source models.UserSearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ParseHits decodes the users out of a search response body.
func ParseHits(body io.Reader) ([]models.User, error) {
	var decoded searchResponse
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	users := make([]models.User, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		document := hit.Source
		if document.ID == "" {
			document.ID = hit.ID
		}
		users = append(users, document.User())
	}
	return users, nil
}

// BulkBody is the newline-delimited bulk payload indexing every user with a
// uid, along with the number of users it carries.
func BulkBody(users []models.User) ([]byte, int, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	count := 0
	for _, user := range users {
		if user.UID == "" {
			continue
		}
		action := map[string]any{"index": map[string]any{"_id": user.UID}}
		if err := encoder.Encode(action); err != nil {
			return nil, 0, err
		}
		if err := encoder.Encode(models.NewUserSearchDocument(user)); err != nil {
			return nil, 0, err
		}
		count++
	}
	return buf.Bytes(), count, nil
}
