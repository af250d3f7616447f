package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapublica/leadflow/internal/infra/cache"
	"github.com/lapublica/leadflow/internal/usecase"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, name := range []string{"migrate", "reminders", "notifications"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestPrintReminderResult(t *testing.T) {
	var out bytes.Buffer
	printReminderResult(&out, usecase.ReminderRunResult{
		Inactive: usecase.InactiveScanResult{Checked: 3, Notified: 2, Skipped: 1},
		Expiring: usecase.ExpiringScanResult{Checked: 1, GestorsNotified: 1, CRMNotified: 2},
		Duration: 1500 * time.Millisecond,
	})

	assert.Contains(t, out.String(), "Inactive: checked 3, notified 2, skipped 1, errors 0")
	assert.Contains(t, out.String(), "Expiring: checked 1, gestors 1, crm 2")
	assert.Contains(t, out.String(), "Duration: 1.5s")
}

func TestPrintReminderResultLockHeld(t *testing.T) {
	var out bytes.Buffer
	printReminderResult(&out, usecase.ReminderRunResult{LockHeld: true})
	assert.Contains(t, out.String(), "holds the lock")
}

func TestCloseReleasesRedisClient(t *testing.T) {
	client := cache.NewRedisClient("127.0.0.1:0", "")
	c := &commandContext{redis: client}

	c.close()

	assert.ErrorContains(t, client.Ping(context.Background()).Err(), "closed")
}
