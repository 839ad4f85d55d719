package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
	"github.com/waitledger/go-wait-ledger/internal/app/core/usecase"
	"github.com/waitledger/go-wait-ledger/pkg/mysql"
)

// sqlBalance 對應資料庫的 balances 表
type sqlBalance struct {
	AccountIndex int   `gorm:"primaryKey;column:account_index"`
	Balance      int64 `gorm:"column:balance"`
	UpdatedAt    int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlBalance) TableName() string {
	return "balances"
}

// sqlSnapshotMeta 對應資料庫的 snapshot_meta 表 (固定單列 id=1)
// LastSequence: 快照已包含的最後一筆 WAL 順序號，
// 開機重放時順序號小於等於它的轉帳一律跳過，避免重複入帳
type sqlSnapshotMeta struct {
	ID           int    `gorm:"primaryKey"`
	LastSequence uint64 `gorm:"column:last_sequence"`
	UpdatedAt    int64  `gorm:"autoUpdateTime:milli"`
}

func (*sqlSnapshotMeta) TableName() string {
	return "snapshot_meta"
}

// SnapshotStore 餘額快照：開機載入、關機保存
// 帳本的阻塞語意只存在於記憶體；資料庫只負責跨次啟動保留餘額
type SnapshotStore struct {
	client *mysql.Client
}

func NewSnapshotStore(client *mysql.Client) *SnapshotStore {
	return &SnapshotStore{
		client: client,
	}
}

// Migrate 建立 balances 與 snapshot_meta 表 (不存在時)
func (s *SnapshotStore) Migrate() error {
	return s.client.DB().AutoMigrate(&sqlBalance{}, &sqlSnapshotMeta{})
}

// LoadBalances 依索引順序載入餘額快照
// 快照必須覆蓋連續索引 0..N-1，缺漏視為損壞
//
// 回傳:
//
//	[]int64: 餘額陣列；資料庫為空時回傳 nil (呼叫端改用初始餘額)
//	uint64: 快照已包含的最後一筆 WAL 順序號
//	error: 查詢錯誤或快照損壞
func (s *SnapshotStore) LoadBalances(ctx context.Context) ([]int64, uint64, error) {
	var rows []sqlBalance
	if err := s.client.DB().WithContext(ctx).
		Order("account_index").
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrSnapshotFailed, err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	balances := make([]int64, len(rows))
	for i, row := range rows {
		if row.AccountIndex != i {
			return nil, 0, fmt.Errorf("%w: gap at account_index %d", domain.ErrSnapshotFailed, i)
		}
		balances[i] = row.Balance
	}

	var meta sqlSnapshotMeta
	err := s.client.DB().WithContext(ctx).Where("id = ?", 1).First(&meta).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// 舊快照沒有 meta 列，視同從頭重放
			return balances, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrSnapshotFailed, err)
	}
	return balances, meta.LastSequence, nil
}

// SaveBalances 將目前餘額與最後套用的 WAL 順序號整批寫入快照
// (單一 DB 交易內 upsert，餘額與順序號不可分開成功)
//
// 參數:
//
//	balances: 餘額陣列，索引即 account_index
//	lastSequence: 最後一筆已入帳轉帳的 WAL 順序號
func (s *SnapshotStore) SaveBalances(ctx context.Context, balances []int64, lastSequence uint64) error {
	rows := make([]sqlBalance, len(balances))
	for i, b := range balances {
		rows[i] = sqlBalance{AccountIndex: i, Balance: b}
	}

	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return err
		}
		meta := sqlSnapshotMeta{ID: 1, LastSequence: lastSequence}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_sequence", "updated_at"}),
		}).Create(&meta).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSnapshotFailed, err)
	}
	return nil
}

var _ usecase.SnapshotStore = (*SnapshotStore)(nil)
