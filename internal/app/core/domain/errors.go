package domain

import "errors"

var (
	// ErrInvalidAccountCount 帳戶數必須為正數
	ErrInvalidAccountCount = errors.New("account count must be positive")

	// ErrIndexOutOfRange 帳戶索引超出範圍
	ErrIndexOutOfRange = errors.New("account index out of range")

	// ErrTransferCancelled 等待資金時被取消
	ErrTransferCancelled = errors.New("transfer cancelled while waiting for funds")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrSnapshotFailed 快照載入/寫入失敗
	ErrSnapshotFailed = errors.New("balance snapshot failed")
)
