package model

import (
	"errors"
	"fmt"
	"mocktest_backend/pkg/docstore"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

// 文档存储中的集合名
const (
	CollectionTests       = "tests"
	CollectionQuestions   = "questions"
	CollectionSubmissions = "submissions"
)

// ErrMalformedRecord 存储返回的记录缺少必填字段或类型不符
var ErrMalformedRecord = errors.New("malformed record")

var validate = validator.New()

func GenerateUUID() string {
	return uuid.New().String()
}

// decodeRecord 将无类型的文档字段解码到 out（以 json tag 作为字段名），
// 写入 ID 后做结构校验。
func decodeRecord(rec *docstore.Record, out any, setID func(string)) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return err
	}

	if err := dec.Decode(rec.Fields); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrMalformedRecord, rec.Collection, rec.ID, err)
	}
	setID(rec.ID)

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrMalformedRecord, rec.Collection, rec.ID, err)
	}
	return nil
}
