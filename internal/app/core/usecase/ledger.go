package usecase

import (
	"context"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
)

// Ledger 是帳本的介面
type Ledger interface {
	// PostTransfer 執行轉帳；資金不足時阻塞直到足額或 ctx 取消
	PostTransfer(ctx context.Context, tran *domain.Transfer) error
	// Balance 取得單一帳戶餘額
	Balance(index int) (int64, error)
	// TotalBalance 取得所有帳戶餘額總和 (一致性快照)
	TotalBalance() int64
	// AccountCount 取得帳戶數 (建構後固定)
	AccountCount() int
}

// SnapshotStore 是餘額快照的介面 (開機載入 / 關機保存)
// 快照與「已包含的最後一筆 WAL 順序號」一併保存，
// 開機重放日誌時依此跳過已入帳的轉帳
type SnapshotStore interface {
	LoadBalances(ctx context.Context) ([]int64, uint64, error)
	SaveBalances(ctx context.Context, balances []int64, lastSequence uint64) error
}
