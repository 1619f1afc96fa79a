// Package docstore 抽象托管后端的文档集合（collections）接口。
// 业务代码只依赖 Store，具体实现可以是关系数据库、远程 BaaS 或内存。
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Record 一条文档记录，Fields 为未经类型化的字段
type Record struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Filter 等值过滤条件
type Filter struct {
	Field string
	Value any
}

// Eq 构造一个等值过滤
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

type Query struct {
	Filters []Filter
	Limit   int
}

type Store interface {
	Get(ctx context.Context, collection, id string) (*Record, error)
	List(ctx context.Context, collection string, q Query) ([]Record, error)
	Create(ctx context.Context, collection, id string, fields map[string]any) (*Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error)
}

// matches 判断字段是否满足全部等值条件，数值统一按 float64 比较
func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || !equalValue(v, f.Value) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
