package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

const (
	conversationKeyPrefix = "conversation:"
	conversationMaxLen    = 50
	conversationTTL       = 24 * time.Hour
)

// ConversationRepository 在 Redis 中维护会话的消息历史。
type ConversationRepository interface {
	AppendMessage(ctx context.Context, conversationID string, msg model.ChatMessage) error
	GetHistory(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error)
	ClearHistory(ctx context.Context, conversationID string) error
}

type conversationRepository struct {
	rdb *redis.Client
}

// NewConversationRepository 创建一个基于 Redis 的会话仓储。
func NewConversationRepository(rdb *redis.Client) ConversationRepository {
	return &conversationRepository{rdb: rdb}
}

func conversationKey(conversationID string) string {
	return conversationKeyPrefix + conversationID
}

// AppendMessage 将消息追加到会话列表尾部，并裁剪为最近 conversationMaxLen 条。
func (r *conversationRepository) AppendMessage(ctx context.Context, conversationID string, msg model.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化会话消息失败: %w", err)
	}

	key := conversationKey(conversationID)
	pipe := r.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -conversationMaxLen, -1)
	pipe.Expire(ctx, key, conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话历史失败: %w", err)
	}
	return nil
}

// GetHistory 返回会话最近的 limit 条消息，按时间先后排序。
// limit <= 0 时返回全部已保留的消息。
func (r *conversationRepository) GetHistory(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	key := conversationKey(conversationID)
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("读取会话历史失败: %w", err)
	}

	messages := make([]model.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			log.Warnf("[ConversationRepository] 跳过无法解析的历史消息: %v", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *conversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	return r.rdb.Del(ctx, conversationKey(conversationID)).Err()
}
