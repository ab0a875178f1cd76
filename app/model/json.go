package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue 将结构序列化为 JSON 列值
func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// jsonScan 从 JSON 列值反序列化
func jsonScan(dst any, value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("不支持的JSON列类型: %T", value)
	}
}
