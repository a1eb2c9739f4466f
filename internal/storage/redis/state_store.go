package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

// 状态键 <prefix>:<camera>:state 为 Hash：字段为值种类，内容为 JSON
const fieldUpdatedAt = "updated_at"

// StateStore 相机最新参数缓存
type StateStore struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore ttl<=0 表示不过期
func NewStateStore(client *Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl, now: time.Now}
}

func (s *StateStore) key(camera string) string {
	return s.client.Key(camera, "state")
}

// Field 值在 Hash 中的字段名；未识别地址按 unparsed.<类别>.<参数> 区分
func Field(v bcs.Value) string {
	if v.Kind() == bcs.KindUnparsed {
		return string(bcs.KindUnparsed) + "." + v.Address().String()
	}
	return string(v.Kind())
}

// Save 写入一条解码值
func (s *StateStore) Save(ctx context.Context, camera string, v bcs.Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", v.Kind(), err)
	}
	key := s.key(camera)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, Field(v), data, fieldUpdatedAt, s.now().UnixMilli())
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state %s: %w", camera, err)
	}
	return nil
}

// State 相机状态快照
type State struct {
	Camera    string                     `json:"camera"`
	Values    map[string]json.RawMessage `json:"values"`
	UpdatedAt *time.Time                 `json:"updated_at,omitempty"`
}

// Load 读取相机全部缓存值；无记录时 Values 为空
func (s *StateStore) Load(ctx context.Context, camera string) (*State, error) {
	m, err := s.client.HGetAll(ctx, s.key(camera)).Result()
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", camera, err)
	}
	st := &State{Camera: camera, Values: make(map[string]json.RawMessage, len(m))}
	for field, raw := range m {
		if field == fieldUpdatedAt {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ts := time.UnixMilli(ms)
				st.UpdatedAt = &ts
			}
			continue
		}
		st.Values[field] = json.RawMessage(raw)
	}
	return st, nil
}

// Clear 删除相机缓存
func (s *StateStore) Clear(ctx context.Context, camera string) error {
	return s.client.Del(ctx, s.key(camera)).Err()
}
