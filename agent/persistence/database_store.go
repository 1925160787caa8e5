package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/agentroom/internal/database"
	"github.com/BaSui01/agentroom/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// =============================================================================
// 🗄️ 数据库后端（gorm）
// =============================================================================
// 表结构与 internal/migration 下的 SQL 迁移保持一致：
//   room_groups   (name PK, agents JSON 文本, created_at, updated_at)
//   room_messages (group_name + seq 联合主键, 其余为消息字段)
// =============================================================================

// GroupModel is the room_groups row.
type GroupModel struct {
	Name      string    `gorm:"column:name;primaryKey;size:255"`
	Agents    string    `gorm:"column:agents;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (GroupModel) TableName() string { return "room_groups" }

// MessageModel is the room_messages row. Seq preserves conversation order.
type MessageModel struct {
	GroupName string `gorm:"column:group_name;primaryKey;size:255"`
	Seq       int    `gorm:"column:seq;primaryKey;autoIncrement:false"`
	ID        string `gorm:"column:id;size:64;not null;index"`
	FromAlias string `gorm:"column:from_alias;size:255;not null"`
	Type      string `gorm:"column:msg_type;size:64;not null"`
	Content   string `gorm:"column:content;type:text;not null"`
	Timestamp int64  `gorm:"column:sent_at;not null"`
	Error     string `gorm:"column:error;type:text"`
}

func (MessageModel) TableName() string { return "room_messages" }

const (
	messageBatchSize = 100
	// saveRetries 死锁或序列化失败时的重试次数
	saveRetries = 3
)

// DatabaseGroupStore persists groups through gorm (postgres, mysql, sqlite).
type DatabaseGroupStore struct {
	db     *gorm.DB
	mu     sync.RWMutex
	closed bool
}

// NewDatabaseGroupStore wraps db. The schema is owned by the migrations;
// callers that skip them (tests, quick demos) can call AutoMigrate.
func NewDatabaseGroupStore(db *gorm.DB) (*DatabaseGroupStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database is required for the database store", ErrInvalidInput)
	}
	return &DatabaseGroupStore{db: db}, nil
}

// AutoMigrate creates the tables from the gorm models.
func (s *DatabaseGroupStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&GroupModel{}, &MessageModel{})
}

func (s *DatabaseGroupStore) conn(ctx context.Context) (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.db.WithContext(ctx), nil
}

func (s *DatabaseGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	group = normalize(group)
	agents, err := json.Marshal(group.Agents)
	if err != nil {
		return fmt.Errorf("failed to marshal agents: %w", err)
	}

	now := time.Now()
	row := GroupModel{Name: group.Name, Agents: string(agents), CreatedAt: now, UpdatedAt: now}
	rows := toMessageModels(group.Name, group.Conversation)

	return database.TransactionWithRetry(ctx, db, saveRetries, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"agents", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert group: %w", err)
		}
		if err := tx.Where("group_name = ?", group.Name).Delete(&MessageModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear messages: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, messageBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert messages: %w", err)
		}
		return nil
	})
}

func (s *DatabaseGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return types.Group{}, err
	}

	var row GroupModel
	if err := db.Where("name = ?", name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Group{}, ErrNotFound
		}
		return types.Group{}, err
	}

	var msgs []MessageModel
	if err := db.Where("group_name = ?", name).Order("seq").Find(&msgs).Error; err != nil {
		return types.Group{}, err
	}
	return fromModels(row, msgs)
}

func (s *DatabaseGroupStore) Delete(ctx context.Context, name string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", name).Delete(&MessageModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&GroupModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *DatabaseGroupStore) List(ctx context.Context) ([]types.Group, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []GroupModel
	if err := db.Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	var msgs []MessageModel
	if err := db.Order("group_name").Order("seq").Find(&msgs).Error; err != nil {
		return nil, err
	}

	byGroup := make(map[string][]MessageModel, len(rows))
	for _, m := range msgs {
		byGroup[m.GroupName] = append(byGroup[m.GroupName], m)
	}

	out := make([]types.Group, 0, len(rows))
	for _, row := range rows {
		g, err := fromModels(row, byGroup[row.Name])
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *DatabaseGroupStore) Ping(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close marks the store closed. The connection pool belongs to the caller.
func (s *DatabaseGroupStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func toMessageModels(group string, msgs []types.Message) []MessageModel {
	out := make([]MessageModel, len(msgs))
	for i, m := range msgs {
		out[i] = MessageModel{
			GroupName: group,
			Seq:       i,
			ID:        m.ID,
			FromAlias: m.From,
			Type:      string(m.Type),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Error:     m.Error,
		}
	}
	return out
}

func fromModels(row GroupModel, msgs []MessageModel) (types.Group, error) {
	g := types.Group{Name: row.Name, Conversation: make([]types.Message, len(msgs))}
	if err := json.Unmarshal([]byte(row.Agents), &g.Agents); err != nil {
		return types.Group{}, fmt.Errorf("corrupt agents column for group %q: %w", row.Name, err)
	}
	for i, m := range msgs {
		g.Conversation[i] = types.Message{
			ID:        m.ID,
			From:      m.FromAlias,
			Type:      types.MessageType(m.Type),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Error:     m.Error,
		}
	}
	return normalize(g), nil
}
