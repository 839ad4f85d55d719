package usecase

import (
	"context"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層
type CoreUseCase struct {
	ledger Ledger
}

func NewCoreUseCase(ledger Ledger) *CoreUseCase {
	return &CoreUseCase{
		ledger: ledger,
	}
}

// PostTransfer 處理轉帳
func (c *CoreUseCase) PostTransfer(ctx context.Context, tran *domain.Transfer) error {
	return c.ledger.PostTransfer(ctx, tran)
}

// Balance 取得帳戶餘額
func (c *CoreUseCase) Balance(index int) (int64, error) {
	return c.ledger.Balance(index)
}

// TotalBalance 取得餘額總和
func (c *CoreUseCase) TotalBalance() int64 {
	return c.ledger.TotalBalance()
}

// AccountCount 取得帳戶數
func (c *CoreUseCase) AccountCount() int {
	return c.ledger.AccountCount()
}
