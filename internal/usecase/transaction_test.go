package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionRunsAllOperations(t *testing.T) {
	var calls []string
	txn := NewTransaction(nil)
	txn.AddOperation("a", func(context.Context) error { calls = append(calls, "a"); return nil })
	txn.AddCompensation("undo_a", func(context.Context) error { calls = append(calls, "undo_a"); return nil })
	txn.AddOperation("b", func(context.Context) error { calls = append(calls, "b"); return nil })

	assert.NoError(t, txn.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestTransactionCompensatesInReverse(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	txn := NewTransaction(nil)
	txn.AddOperation("a", func(context.Context) error { calls = append(calls, "a"); return nil })
	txn.AddCompensation("undo_a", func(context.Context) error { calls = append(calls, "undo_a"); return nil })
	txn.AddOperation("b", func(context.Context) error { calls = append(calls, "b"); return nil })
	txn.AddCompensation("undo_b", func(context.Context) error { calls = append(calls, "undo_b"); return errors.New("ignored") })
	txn.AddOperation("c", func(context.Context) error { return boom })
	txn.AddCompensation("undo_c", func(context.Context) error { calls = append(calls, "undo_c"); return nil })

	err := txn.Execute(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "operation 'c' failed")
	assert.Equal(t, []string{"a", "b", "undo_b", "undo_a"}, calls)
}

func TestTransactionFirstOperationFailureCompensatesNothing(t *testing.T) {
	compensated := false
	txn := NewTransaction(nil)
	txn.AddOperation("a", func(context.Context) error { return errors.New("fail") })
	txn.AddCompensation("undo_a", func(context.Context) error { compensated = true; return nil })

	assert.Error(t, txn.Execute(context.Background()))
	assert.False(t, compensated)
}
