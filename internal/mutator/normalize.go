package mutator

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
)

// NormalizeValue 按声明的数据类型规范化取值, 返回存储用的文本
func NormalizeValue(value any, dataType model.DataType) (string, error) {
	switch dataType {
	case model.DataTypeNumber:
		d, err := toDecimal(value)
		if err != nil {
			return "", err
		}
		return d.String(), nil

	case model.DataTypeBoolean:
		switch v := value.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return "", bizerr.Validationf("value %q is not a boolean", v)
			}
			return strconv.FormatBool(b), nil
		}
		return "", bizerr.Validationf("value of type %T is not a boolean", value)

	case model.DataTypeObject:
		var raw []byte
		switch v := value.(type) {
		case string:
			raw = []byte(v)
		case json.RawMessage:
			raw = v
		case map[string]any:
			data, err := json.Marshal(v)
			if err != nil {
				return "", bizerr.Wrap(bizerr.ErrValidation, err)
			}
			raw = data
		default:
			return "", bizerr.Validationf("value of type %T is not an object", value)
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return "", bizerr.Validationf("value is not a JSON object")
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", bizerr.Wrap(bizerr.ErrValidation, err)
		}
		return buf.String(), nil

	case model.DataTypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return "", bizerr.Validationf("value of type %T is not a string", value)
	}
	return "", bizerr.Validationf("unknown data type %q", dataType)
}

// toDecimal 解析数值输入, 拒绝 NaN 与无穷
func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, bizerr.Validationf("value %q is not a number", v)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, bizerr.Validationf("value %q is not a number", v.String())
		}
		return d, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, bizerr.Validationf("value %v is not a finite number", v)
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return toDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	}
	return decimal.Zero, bizerr.Validationf("value of type %T is not a number", value)
}
