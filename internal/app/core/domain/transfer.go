package domain

import "github.com/google/uuid"

// Transfer 轉帳請求/紀錄 注意欄位排序以避免 Padding
type Transfer struct {
	// Sequence: 全局唯一的順序號 (由帳本分配，1, 2, 3...)
	// 用於 WAL 重放確保順序一致
	Sequence uint64
	// From, To: 帳戶索引 (0..N-1，位置即身分)
	From int
	To   int
	// Amount: 金額 (最小貨幣單位)
	// 允許為零或負數：負數等同反向轉帳，等待條件只看 balances[From] < Amount
	Amount int64
	// CreatedAt: 建立時間 (Unix milli)
	CreatedAt int64
	// TransferID: 外部追蹤號 (UUID)，用於冪等去重
	TransferID uuid.UUID
}
