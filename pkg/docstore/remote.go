package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type RemoteConfig struct {
	Endpoint string
	Project  string
	APIKey   string
	Database string
	Timeout  time.Duration
	Retries  int
}

// RemoteStore 通过 REST 文档接口访问托管后端（BaaS）
type RemoteStore struct {
	client   *resty.Client
	database string
}

type remoteQuery struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values"`
}

type remoteList struct {
	Total     int              `json:"total"`
	Documents []map[string]any `json:"documents"`
}

func NewRemoteStore(cfg RemoteConfig) *RemoteStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Appwrite-Project", cfg.Project).
		SetHeader("X-Appwrite-Key", cfg.APIKey).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &RemoteStore{client: client, database: cfg.Database}
}

// request 响应一律按 JSON 解析，类型不符时解码报错而不是返回空记录
func (s *RemoteStore) request(ctx context.Context) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

func (s *RemoteStore) documentsPath(collection string) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(s.database), url.PathEscape(collection))
}

func (s *RemoteStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	var doc map[string]any
	resp, err := s.request(ctx).
		SetResult(&doc).
		Get(s.documentsPath(collection) + "/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return fromRemote(collection, doc), nil
}

func (s *RemoteStore) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	params := url.Values{}
	for _, f := range q.Filters {
		encoded, err := json.Marshal(remoteQuery{Method: "equal", Attribute: f.Field, Values: []any{f.Value}})
		if err != nil {
			return nil, err
		}
		params.Add("queries[]", string(encoded))
	}
	if q.Limit > 0 {
		encoded, err := json.Marshal(remoteQuery{Method: "limit", Values: []any{q.Limit}})
		if err != nil {
			return nil, err
		}
		params.Add("queries[]", string(encoded))
	}

	var list remoteList
	resp, err := s.request(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&list).
		Get(s.documentsPath(collection))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(list.Documents))
	for _, doc := range list.Documents {
		records = append(records, *fromRemote(collection, doc))
	}
	return records, nil
}

func (s *RemoteStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	var doc map[string]any
	resp, err := s.request(ctx).
		SetBody(map[string]any{"documentId": id, "data": fields}).
		SetResult(&doc).
		Post(s.documentsPath(collection))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return fromRemote(collection, doc), nil
}

func (s *RemoteStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	var doc map[string]any
	resp, err := s.request(ctx).
		SetBody(map[string]any{"data": fields}).
		SetResult(&doc).
		Patch(s.documentsPath(collection) + "/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return fromRemote(collection, doc), nil
}

func checkResponse(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode() == http.StatusConflict:
		return ErrAlreadyExists
	case resp.IsError():
		return fmt.Errorf("remote store: %s %s: status %d: %s",
			resp.Request.Method, resp.Request.URL, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// fromRemote 拆出 $ 开头的系统字段，其余作为业务字段
func fromRemote(collection string, doc map[string]any) *Record {
	rec := &Record{Collection: collection, Fields: map[string]any{}}
	for k, v := range doc {
		switch k {
		case "$id":
			rec.ID, _ = v.(string)
		case "$createdAt":
			rec.CreatedAt = parseRemoteTime(v)
		case "$updatedAt":
			rec.UpdatedAt = parseRemoteTime(v)
		default:
			if strings.HasPrefix(k, "$") {
				continue
			}
			rec.Fields[k] = v
		}
	}
	return rec
}

func parseRemoteTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
