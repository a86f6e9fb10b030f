package models

import "ledger/internal/apperror"

// Movement is the balance effect of a transaction. Only the three variants
// below implement it, and each can only be built with the account references
// its type needs.
type Movement interface {
	Type() TransactionType
	From() *int64
	To() *int64
	movement()
}

type CreditMovement struct{ Account int64 }

type DebitMovement struct{ Account int64 }

type TransferMovement struct {
	Source      int64
	Destination int64
}

func (m CreditMovement) Type() TransactionType { return TransactionCredit }
func (m CreditMovement) From() *int64 { return nil }
func (m CreditMovement) To() *int64 { return &m.Account }
func (CreditMovement) movement() {}

func (m DebitMovement) Type() TransactionType { return TransactionDebit }
func (m DebitMovement) From() *int64 { return &m.Account }
func (m DebitMovement) To() *int64 { return nil }
func (DebitMovement) movement() {}

func (m TransferMovement) Type() TransactionType { return TransactionTransfer }
func (m TransferMovement) From() *int64 { return &m.Source }
func (m TransferMovement) To() *int64 { return &m.Destination }
func (TransferMovement) movement() {}

// NewMovement validates the account references for txType. Credits need a
// destination, debits a source, transfers both and they must differ.
// References the type does not use are ignored.
func NewMovement(txType TransactionType, from, to *int64) (Movement, error) {
	switch txType {
	case TransactionCredit:
		if to == nil {
			return nil, apperror.BadRequest("credit requires to_account_id")
		}
		return CreditMovement{Account: *to}, nil
	case TransactionDebit:
		if from == nil {
			return nil, apperror.BadRequest("debit requires from_account_id")
		}
		return DebitMovement{Account: *from}, nil
	case TransactionTransfer:
		if from == nil || to == nil {
			return nil, apperror.BadRequest("transfer requires from_account_id and to_account_id")
		}
		if *from == *to {
			return nil, apperror.BadRequest("cannot transfer to the same account")
		}
		return TransferMovement{Source: *from, Destination: *to}, nil
	default:
		return nil, apperror.BadRequest("unknown transaction type %q", txType)
	}
}
