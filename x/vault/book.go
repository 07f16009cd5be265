package vault

import (
	"github.com/covault/covault"
	"github.com/covault/covault/errors"
	"github.com/covault/covault/orm"
)

// Book tracks single-asset balances per address. It backs the default
// invoker and the ledger's deposit operation; nothing else in the
// package depends on it.
type Book struct {
	bucket orm.Bucket
}

// NewBook initializes a Book with the default bucket name.
func NewBook() Book {
	return Book{
		bucket: orm.NewBucket("funds", orm.NewSimpleObj(nil, new(Funds))),
	}
}

// Balance returns the amount held by the given address. Unknown
// addresses hold zero.
func (b Book) Balance(db covault.ReadOnlyKVStore, addr covault.Address) (int64, error) {
	obj, err := b.bucket.Get(db, addr)
	if err != nil {
		return 0, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil {
		return 0, nil
	}
	return obj.Value().(*Funds).Total, nil
}

// Credit adds the amount to the given address.
func (b Book) Credit(db covault.KVStore, addr covault.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "credit of %d", amount)
	}
	total, err := b.Balance(db, addr)
	if err != nil {
		return err
	}
	if total+amount < total {
		return errors.Wrapf(errors.ErrOverflow, "balance of %s", addr)
	}
	obj := orm.NewSimpleObj(addr, &Funds{Total: total + amount})
	return b.bucket.Save(db, obj)
}

// Move transfers the amount from src to dest. Moving zero is a noop;
// a negative amount is rejected. If src does not hold enough, the move
// fails with ErrInsufficientFunds and no balance changes.
func (b Book) Move(db covault.KVStore, src, dest covault.Address, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(errors.ErrAmount, "move of %d", amount)
	}
	if amount == 0 {
		return nil
	}

	held, err := b.Balance(db, src)
	if err != nil {
		return err
	}
	if held < amount {
		return errors.Wrapf(ErrInsufficientFunds, "%s holds %d, needs %d", src, held, amount)
	}

	if held == amount {
		// drained accounts are removed rather than stored empty
		if err := b.bucket.Delete(db, src); err != nil {
			return err
		}
	} else {
		obj := orm.NewSimpleObj(src, &Funds{Total: held - amount})
		if err := b.bucket.Save(db, obj); err != nil {
			return err
		}
	}
	return b.Credit(db, dest, amount)
}

// Invoker delivers the side effect of an executed action.
//
// Invoke is called exactly once per successful execution with the
// scratch-pad store of the running operation: writes it makes are
// committed or rolled back together with the executed flag. A non-nil
// error marks the invocation as failed and aborts the execution.
//
// Invoke must not call back into the ledger. Mutating reentry is
// rejected with ErrBusy.
type Invoker interface {
	Invoke(db covault.KVStore, destination covault.Address, amount int64, payload []byte) error
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(db covault.KVStore, destination covault.Address, amount int64, payload []byte) error

func (f InvokerFunc) Invoke(db covault.KVStore, destination covault.Address, amount int64, payload []byte) error {
	return f(db, destination, amount, payload)
}

// BookInvoker settles executed actions against a funds book, moving
// the action amount from the ledger's own account to the destination.
// The payload is ignored; it is carried for invokers that interpret
// it.
type BookInvoker struct {
	book   Book
	source covault.Address
}

var _ Invoker = BookInvoker{}

// NewBookInvoker returns an invoker paying out of source.
func NewBookInvoker(book Book, source covault.Address) BookInvoker {
	return BookInvoker{
		book:   book,
		source: source,
	}
}

func (inv BookInvoker) Invoke(db covault.KVStore, destination covault.Address, amount int64, payload []byte) error {
	return inv.book.Move(db, inv.source, destination, amount)
}
