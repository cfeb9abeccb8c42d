package model

import (
	"time"

	"gorm.io/gorm"

	"database/sql/driver"
	"encoding/json"
	"errors"
)

// BaseModel 时间戳由 gorm 维护，不依赖数据库默认值，
// 这样同一套模型在 postgres 和测试用的 sqlite 上都能迁移。
type BaseModel struct {
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
}

// Int64Set 以 JSON 文本存储的 int64 集合（保持插入序，去重）
type Int64Set []int64

func (s Int64Set) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]int64{})
	}
	return json.Marshal([]int64(s))
}

func (s *Int64Set) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return errors.New("failed to unmarshal Int64Set value")
		}
	}
	return json.Unmarshal(bytes, s)
}

func (s Int64Set) Contains(id int64) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Union 返回与 ids 的并集；不修改接收者。
func (s Int64Set) Union(ids ...int64) Int64Set {
	out := make(Int64Set, len(s), len(s)+len(ids))
	copy(out, s)
	for _, id := range ids {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// IntList 以 JSON 文本存储的 int 列表（用于活跃星期等）
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]int{})
	}
	return json.Marshal([]int(l))
}

func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return errors.New("failed to unmarshal IntList value")
		}
	}
	return json.Unmarshal(bytes, l)
}

func (l IntList) Contains(v int) bool {
	for _, x := range l {
		if x == v {
			return true
		}
	}
	return false
}
