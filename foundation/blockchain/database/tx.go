package database

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Set of errors returned when validating a transaction.
var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidFee    = errors.New("fee can't be negative")
	ErrSelfTransfer  = errors.New("sending money to yourself")
)

// Tx is the transactional information between two parties waiting in a
// pool to be mined.
type Tx struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	TimeStamp uint64  `json:"timestamp"`
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(from string, to string, amount float64, fee float64) (Tx, error) {
	tx := Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Validate checks the transaction fields are usable and that the entry
// recorded for it can be read back.
func (tx Tx) Validate() error {
	if err := CheckSender(tx.From); err != nil {
		return err
	}

	if err := CheckRecipient(tx.To); err != nil {
		return err
	}

	if tx.From == tx.To {
		return fmt.Errorf("%w: from %s, to %s", ErrSelfTransfer, tx.From, tx.To)
	}

	if !(tx.Amount > 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidAmount, tx.Amount)
	}

	if tx.Fee < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFee, tx.Fee)
	}

	return nil
}

// ID returns a short fingerprint of the transaction. It identifies the
// transaction in a pool and carries no signature.
func (tx Tx) ID() string {
	s := tx.From + tx.To + FormatAmount(tx.Amount) + FormatAmount(tx.Fee) + strconv.FormatUint(tx.TimeStamp, 10)
	sum := sha256.Sum256([]byte(s))

	return common.Bytes2Hex(sum[:])[:16]
}

// Cost returns what the sender pays for the transaction.
func (tx Tx) Cost() float64 {
	return tx.Amount + tx.Fee
}

// Entry returns the ledger entry recorded when the transaction is mined.
// The fee is kept by the pool and is not part of the entry.
func (tx Tx) Entry() Entry {
	return Transfer(tx.From, tx.To, tx.Amount)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s:%s:%s", tx.ID(), tx.From, tx.To, FormatAmount(tx.Amount), FormatAmount(tx.Fee))
}
