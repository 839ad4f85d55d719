package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waitledger/go-wait-ledger/internal/app/core/domain"
)

// fakeLedger 記錄呼叫，驗證 UseCase 只做轉發
type fakeLedger struct {
	posted []*domain.Transfer
}

func (f *fakeLedger) PostTransfer(_ context.Context, tran *domain.Transfer) error {
	f.posted = append(f.posted, tran)
	return nil
}

func (f *fakeLedger) Balance(index int) (int64, error) {
	if index != 0 {
		return 0, domain.ErrIndexOutOfRange
	}
	return 42, nil
}

func (f *fakeLedger) TotalBalance() int64 { return 42 }
func (f *fakeLedger) AccountCount() int   { return 1 }

func TestCoreUseCaseDelegates(t *testing.T) {
	ledger := &fakeLedger{}
	core := NewCoreUseCase(ledger)

	tran := &domain.Transfer{TransferID: uuid.New(), From: 0, To: 0, Amount: 1}
	require.NoError(t, core.PostTransfer(context.Background(), tran))
	require.Len(t, ledger.posted, 1)
	assert.Same(t, tran, ledger.posted[0])

	b, err := core.Balance(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), b)

	_, err = core.Balance(1)
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	assert.Equal(t, int64(42), core.TotalBalance())
	assert.Equal(t, 1, core.AccountCount())
}
