package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
	"github.com/waitledger/go-wait-ledger/internal/app/core/usecase"
	"github.com/waitledger/go-wait-ledger/pkg/wal"
)

// WaitLedger 是一個會「等錢進來」的帳本
//
// 固定長度的餘額陣列由單一 Mutex 保護；轉帳發現來源帳戶餘額不足時，
// 不回傳錯誤，而是掛起等待，直到任何一筆轉帳成功後被喚醒重新檢查。
// 喚醒採廣播：任何成功的轉帳都可能（直接或間接）滿足多個等待者，
// 只叫醒一個會造成飢餓。
//
// 結構:
//
//	balances: 帳戶餘額陣列，索引即帳戶身分，建構後長度不變
//	mu: Mutex 用於保護餘額與下列所有欄位
//	fundsArrived: 廣播用 channel；每次成功轉帳後 close 並換新，
//	              等同 Condition 的 signalAll。等待者在持鎖時先取得
//	              舊 channel 再解鎖，所以解鎖與進入等待之間的廣播
//	              不會遺失 (lost wakeup)
//	processedTransfers: 已處理過的轉帳 Map (冪等去重)
//	wal: Write-Ahead Log 實例 (可為 nil，純記憶體模式)
//	sequence: 下一筆寫入 WAL 的順序號
type WaitLedger struct {
	balances []int64
	mu       sync.Mutex

	fundsArrived chan struct{}

	// 已處理過的轉帳
	processedTransfers map[uuid.UUID]time.Time
	// Write-Ahead Logging
	wal      *wal.WAL
	sequence uint64
}

// NewWaitLedger 建立一個新的 WaitLedger 實例，所有帳戶設為相同初始餘額
//
// 參數:
//
//	accountCount: 帳戶數，必須為正
//	initialBalance: 每個帳戶的初始餘額 (允許負數，模擬負債)
//	w: Write-Ahead Log 實例 (nil 表示不記日誌)
//
// 回傳:
//
//	*WaitLedger: WaitLedger 實例
//	error: 參數錯誤或 WAL 恢復失敗
func NewWaitLedger(accountCount int, initialBalance int64, w *wal.WAL) (*WaitLedger, error) {
	if accountCount <= 0 {
		return nil, domain.ErrInvalidAccountCount
	}
	balances := make([]int64, accountCount)
	for i := range balances {
		balances[i] = initialBalance
	}
	return newWaitLedger(balances, 0, w)
}

// NewWaitLedgerWithBalances 以既有餘額 (如 MySQL 快照) 建立 WaitLedger
// balances 會被複製，呼叫端保留所有權
//
// sinceSequence 是快照已包含的最後一筆 WAL 順序號：重放時順序號
// 小於等於它的轉帳已反映在 balances 裡，只登記去重、不再套用，
// 避免「快照 + 舊日誌」重複入帳
func NewWaitLedgerWithBalances(balances []int64, sinceSequence uint64, w *wal.WAL) (*WaitLedger, error) {
	if len(balances) == 0 {
		return nil, domain.ErrInvalidAccountCount
	}
	copied := make([]int64, len(balances))
	copy(copied, balances)
	return newWaitLedger(copied, sinceSequence, w)
}

func newWaitLedger(balances []int64, sinceSequence uint64, w *wal.WAL) (*WaitLedger, error) {
	ledger := &WaitLedger{
		balances:           balances,
		fundsArrived:       make(chan struct{}),
		processedTransfers: make(map[uuid.UUID]time.Time),
		wal:                w,
		sequence:           sinceSequence,
	}
	if err := ledger.recoverFromWAL(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
//
// 回傳:
//
//	error: 恢復過程錯誤
func (l *WaitLedger) recoverFromWAL() error {
	if l.wal == nil {
		return nil
	}
	tranHistory := make([]domain.Transfer, 0)

	err := l.wal.ReadAll(func(jsonRaw []byte) error {
		var tran domain.Transfer
		if err := json.Unmarshal(jsonRaw, &tran); err != nil {
			return err
		}
		tranHistory = append(tranHistory, tran)
		return nil
	})
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range tranHistory {
		if err := l.applyRecoveredTransfer(&tranHistory[i], now); err != nil {
			return err
		}
	}
	return nil
}

// applyRecoveredTransfer 重放單筆轉帳至記憶體 (不寫入 WAL，不等待)
// 只有建構流程呼叫，無需 Lock (單執行緒)。日誌中的轉帳在當初套用時
// 已通過餘額檢查，依序重放即可保持總額守恆。
// 順序號小於等於目前 sequence 的轉帳已反映在起始餘額 (快照) 裡，
// 只登記 TransferID 供去重，不重複套用
func (l *WaitLedger) applyRecoveredTransfer(tran *domain.Transfer, now time.Time) error {
	if tran.Sequence <= l.sequence {
		l.processedTransfers[tran.TransferID] = now
		return nil
	}
	if err := l.checkIndex(tran.From); err != nil {
		return err
	}
	if err := l.checkIndex(tran.To); err != nil {
		return err
	}
	l.balances[tran.From] -= tran.Amount
	l.balances[tran.To] += tran.Amount
	l.processedTransfers[tran.TransferID] = now
	l.sequence = tran.Sequence
	return nil
}

// checkIndex 檢查帳戶索引是否在 [0, accountCount) 內
func (l *WaitLedger) checkIndex(index int) error {
	if index < 0 || index >= len(l.balances) {
		return fmt.Errorf("%w: %d (accounts: %d)", domain.ErrIndexOutOfRange, index, len(l.balances))
	}
	return nil
}

// Transfer 從 from 轉 amount 到 to，資金不足時阻塞等待
// 這是 PostTransfer 的便利包裝，自動產生追蹤用 UUID
//
// 參數:
//
//	ctx: 上下文，等待中可藉此取消
//	from, to: 帳戶索引。from == to 合法，走一般路徑後淨額為零
//	amount: 金額，允許為零或負數 (負數等同反向轉帳，不會阻塞)
//
// 回傳:
//
//	error: 索引錯誤、取消、或 WAL 寫入失敗
func (l *WaitLedger) Transfer(ctx context.Context, from, to int, amount int64) error {
	return l.PostTransfer(ctx, &domain.Transfer{
		TransferID: uuid.New(),
		From:       from,
		To:         to,
		Amount:     amount,
		CreatedAt:  time.Now().UnixMilli(),
	})
}

// PostTransfer 處理轉帳請求
//
// 行為:
//  1. 索引驗證 (在取鎖之前，失敗不碰任何狀態)
//  2. 持鎖檢查 balances[From] >= Amount；不足則解鎖掛起，
//     被廣播喚醒後重新取鎖再檢查 (迴圈，容忍虛假喚醒)
//  3. 足額時在臨界區內一次完成 WAL 記錄、扣款、入款
//  4. 廣播喚醒所有等待者
//
// 取消: 等待期間 ctx 取消時回傳包裝 ctx.Err() 的 ErrTransferCancelled，
// 此時未持鎖、也未發生任何部分異動
//
// 參數:
//
//	ctx: 上下文
//	tran: 轉帳請求物件；首次套用時會被分配 Sequence
//
// 回傳:
//
//	error: 處理錯誤
func (l *WaitLedger) PostTransfer(ctx context.Context, tran *domain.Transfer) error {
	if err := l.checkIndex(tran.From); err != nil {
		return err
	}
	if err := l.checkIndex(tran.To); err != nil {
		return err
	}

	l.mu.Lock()
	for {
		// 去重檢查放在迴圈內：等待期間同一 TransferID 可能已被
		// 另一條連線重送並完成
		if _, ok := l.processedTransfers[tran.TransferID]; ok {
			l.mu.Unlock()
			return nil
		}
		if l.balances[tran.From] >= tran.Amount {
			break
		}

		// 先在持鎖狀態下取得目前的廣播 channel，再解鎖等待。
		// 解鎖後才發生的廣播會 close 這個 channel，select 仍然看得到
		arrived := l.fundsArrived
		l.mu.Unlock()

		select {
		case <-arrived:
			// 有轉帳成功了，回去重新檢查餘額
		case <-ctx.Done():
			// 同時包住 domain 哨兵與 ctx.Err()，呼叫端兩種都能 errors.Is
			return fmt.Errorf("%w: %w", domain.ErrTransferCancelled, ctx.Err())
		}
		l.mu.Lock()
	}

	// 1. 寫入 WAL (Critical Path)
	l.sequence++
	tran.Sequence = l.sequence
	if l.wal != nil {
		if err := l.wal.Write(tran); err != nil {
			l.mu.Unlock()
			return domain.ErrWALWriteFailed
		}
	}

	// 2. 扣款與入款必須一起發生，其他執行緒不可能只看到其中一半
	l.balances[tran.From] -= tran.Amount
	l.balances[tran.To] += tran.Amount
	l.processedTransfers[tran.TransferID] = time.Now()

	// 3. 廣播：close 舊 channel 喚醒所有等待者，換上新的給之後的等待者
	close(l.fundsArrived)
	l.fundsArrived = make(chan struct{})

	l.mu.Unlock()
	return nil
}

// Balance 取得指定帳戶的當前餘額
//
// 參數:
//
//	index: 帳戶索引
//
// 回傳:
//
//	int64: 帳戶餘額
//	error: 索引錯誤
func (l *WaitLedger) Balance(index int) (int64, error) {
	if err := l.checkIndex(index); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[index], nil
}

// TotalBalance 取得所有帳戶餘額總和
// 持鎖加總以取得一致性快照；轉帳守恆，所以任何時刻的回傳值
// 都等於初始總額
func (l *WaitLedger) TotalBalance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, b := range l.balances {
		total += b
	}
	return total
}

// AccountCount 取得帳戶數
// 長度建構後不變，不需要鎖
func (l *WaitLedger) AccountCount() int {
	return len(l.balances)
}

// Balances 取得目前餘額的拷貝 (供關機時寫入快照)
func (l *WaitLedger) Balances() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, len(l.balances))
	copy(out, l.balances)
	return out
}

// Sequence 取得最後套用的 WAL 順序號
func (l *WaitLedger) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sequence
}

// Snapshot 在同一個臨界區內取得餘額拷貝與對應的 WAL 順序號
// (關機寫快照用；分兩次取可能夾到中間的轉帳，讓順序號超前餘額)
func (l *WaitLedger) Snapshot() ([]int64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, len(l.balances))
	copy(out, l.balances)
	return out, l.sequence
}

var _ usecase.Ledger = (*WaitLedger)(nil)
