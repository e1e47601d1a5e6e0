package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask() *PutawayTask {
	return NewPutawayTask(NewTaskParams{
		TaskNumber: "PTW-000042",
		CompanyID:  "CMP-1",
		LocationID: "LOC-1",
		SKUID:      "SKU-100",
		SKUCode:    "SKU-100",
		SKUName:    "Widget",
		Quantity:   50,
		ToBinID:    "B-01",
		ToBinCode:  "B-01",
	})
}

func TestNewPutawayTask(t *testing.T) {
	task := newTestTask()

	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, 3, task.Priority)
	assert.Equal(t, 50, task.Quantity)
	assert.Nil(t, task.ActualQty)
	assert.False(t, task.ShortShipped)

	require.Len(t, task.DomainEvents, 1)
	assert.Equal(t, "putaway.task.created", task.DomainEvents[0].EventType())
}

func TestTaskStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{"pending to assigned", TaskStatusPending, TaskStatusAssigned, true},
		{"pending to in_progress", TaskStatusPending, TaskStatusInProgress, true},
		{"pending to cancelled", TaskStatusPending, TaskStatusCancelled, true},
		{"pending to completed", TaskStatusPending, TaskStatusCompleted, false},
		{"assigned to in_progress", TaskStatusAssigned, TaskStatusInProgress, true},
		{"assigned to pending", TaskStatusAssigned, TaskStatusPending, false},
		{"assigned to completed", TaskStatusAssigned, TaskStatusCompleted, false},
		{"in_progress to completed", TaskStatusInProgress, TaskStatusCompleted, true},
		{"in_progress to cancelled", TaskStatusInProgress, TaskStatusCancelled, true},
		{"in_progress to assigned", TaskStatusInProgress, TaskStatusAssigned, false},
		{"completed is terminal", TaskStatusCompleted, TaskStatusInProgress, false},
		{"completed to cancelled", TaskStatusCompleted, TaskStatusCancelled, false},
		{"cancelled is terminal", TaskStatusCancelled, TaskStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAssign(t *testing.T) {
	t.Run("assigns a pending task", func(t *testing.T) {
		task := newTestTask()

		err := task.Assign("U1", "Asha")
		require.NoError(t, err)

		assert.Equal(t, TaskStatusAssigned, task.Status)
		assert.Equal(t, "U1", task.AssignedToID)
		assert.Equal(t, "Asha", task.AssignedToName)
		require.NotNil(t, task.AssignedAt)
	})

	t.Run("rejects non-pending task", func(t *testing.T) {
		task := newTestTask()
		require.NoError(t, task.Assign("U1", "Asha"))

		err := task.Assign("U2", "Ben")

		var transitionErr *StateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, TaskStatusAssigned, transitionErr.Current)
		assert.Equal(t, "assign", transitionErr.Attempted)
		assert.Equal(t, "U1", task.AssignedToID)
	})

	t.Run("an assigned task cannot return to the pending pool", func(t *testing.T) {
		task := newTestTask()
		require.NoError(t, task.Assign("U1", "Asha"))

		assert.False(t, task.Status.CanTransitionTo(TaskStatusPending))
		assert.Equal(t, TaskStatusAssigned, task.Status)
		assert.Equal(t, "U1", task.AssignedToID)
	})
}

func TestStart(t *testing.T) {
	t.Run("starts an assigned task", func(t *testing.T) {
		task := newTestTask()
		require.NoError(t, task.Assign("U1", "Asha"))

		err := task.Start("U1", "Asha")
		require.NoError(t, err)

		assert.Equal(t, TaskStatusInProgress, task.Status)
		require.NotNil(t, task.StartedAt)
	})

	t.Run("self-start assigns the acting worker", func(t *testing.T) {
		task := newTestTask()

		err := task.Start("U7", "Maya")
		require.NoError(t, err)

		assert.Equal(t, TaskStatusInProgress, task.Status)
		assert.Equal(t, "U7", task.AssignedToID)
		require.NotNil(t, task.AssignedAt)
	})

	t.Run("rejects start from in_progress", func(t *testing.T) {
		task := newTestTask()
		require.NoError(t, task.Start("U1", "Asha"))

		err := task.Start("U2", "Ben")

		var transitionErr *StateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, TaskStatusInProgress, transitionErr.Current)
	})
}

func TestComplete(t *testing.T) {
	setupInProgress := func(t *testing.T) *PutawayTask {
		task := newTestTask()
		require.NoError(t, task.Start("U1", "Asha"))
		return task
	}

	t.Run("defaults actual bin and quantity", func(t *testing.T) {
		task := setupInProgress(t)

		err := task.Complete(CompleteParams{})
		require.NoError(t, err)

		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, "B-01", task.ActualBinID)
		require.NotNil(t, task.ActualQty)
		assert.Equal(t, 50, *task.ActualQty)
		assert.False(t, task.ShortShipped)
		require.NotNil(t, task.CompletedAt)
	})

	t.Run("flags short shipment", func(t *testing.T) {
		task := setupInProgress(t)
		qty := 45

		err := task.Complete(CompleteParams{ActualQty: &qty})
		require.NoError(t, err)

		assert.True(t, task.ShortShipped)
		assert.Equal(t, 45, *task.ActualQty)

		eventTypes := make([]string, 0)
		for _, e := range task.GetDomainEvents() {
			eventTypes = append(eventTypes, e.EventType())
		}
		assert.Contains(t, eventTypes, "putaway.task.short-shipped")
		assert.Contains(t, eventTypes, "putaway.task.completed")
		assert.Contains(t, eventTypes, "putaway.inventory.placed")
	})

	t.Run("records an over-count as delivered", func(t *testing.T) {
		task := setupInProgress(t)
		qty := 53

		err := task.Complete(CompleteParams{ActualQty: &qty})
		require.NoError(t, err)

		assert.Equal(t, TaskStatusCompleted, task.Status)
		require.NotNil(t, task.ActualQty)
		assert.Equal(t, 53, *task.ActualQty)
		assert.False(t, task.ShortShipped)
	})

	t.Run("rejects a negative quantity", func(t *testing.T) {
		task := setupInProgress(t)
		qty := -1

		err := task.Complete(CompleteParams{ActualQty: &qty})
		assert.ErrorIs(t, err, ErrNegativeQuantity)
		assert.Equal(t, TaskStatusInProgress, task.Status)
	})

	t.Run("accepts actual bin override", func(t *testing.T) {
		task := setupInProgress(t)

		err := task.Complete(CompleteParams{ActualBinID: "B-09", ActualBinCode: "B-09"})
		require.NoError(t, err)

		assert.Equal(t, "B-09", task.ActualBinID)
	})

	t.Run("rejects complete from pending", func(t *testing.T) {
		task := newTestTask()

		err := task.Complete(CompleteParams{})

		var transitionErr *StateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "complete", transitionErr.Attempted)
	})
}

func TestCancel(t *testing.T) {
	t.Run("cancels with reason", func(t *testing.T) {
		task := newTestTask()

		err := task.Cancel("wrong SKU")
		require.NoError(t, err)

		assert.Equal(t, TaskStatusCancelled, task.Status)
		assert.Equal(t, "wrong SKU", task.CancellationReason)
		require.NotNil(t, task.CancelledAt)
	})

	t.Run("requires a reason", func(t *testing.T) {
		task := newTestTask()

		err := task.Cancel("")
		assert.ErrorIs(t, err, ErrReasonRequired)
		assert.Equal(t, TaskStatusPending, task.Status)
	})

	t.Run("rejects cancel of completed task", func(t *testing.T) {
		task := newTestTask()
		require.NoError(t, task.Start("U1", "Asha"))
		require.NoError(t, task.Complete(CompleteParams{}))

		err := task.Cancel("late")

		var transitionErr *StateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, TaskStatusCompleted, transitionErr.Current)
	})
}

func TestTerminalImmutability(t *testing.T) {
	complete := func() *PutawayTask {
		task := newTestTask()
		require.NoError(t, task.Start("U1", "Asha"))
		require.NoError(t, task.Complete(CompleteParams{}))
		return task
	}
	cancel := func() *PutawayTask {
		task := newTestTask()
		require.NoError(t, task.Cancel("not needed"))
		return task
	}

	for _, setup := range []func() *PutawayTask{complete, cancel} {
		task := setup()
		before := *task
		qty := 1

		assert.Error(t, task.Assign("U2", "Ben"))
		assert.Error(t, task.Start("U2", "Ben"))
		assert.Error(t, task.Complete(CompleteParams{ActualQty: &qty}))
		assert.Error(t, task.Cancel("again"))

		assert.Equal(t, before.Status, task.Status)
		assert.Equal(t, before.AssignedToID, task.AssignedToID)
		assert.Equal(t, before.ActualQty, task.ActualQty)
		assert.Equal(t, before.CompletedAt, task.CompletedAt)
		assert.Equal(t, before.CancelledAt, task.CancelledAt)
	}
}

func TestCompletedAtSetOnce(t *testing.T) {
	task := newTestTask()
	require.NoError(t, task.Start("U1", "Asha"))
	require.NoError(t, task.Complete(CompleteParams{}))

	completedAt := *task.CompletedAt
	time.Sleep(time.Millisecond)

	assert.Error(t, task.Complete(CompleteParams{}))
	assert.Equal(t, completedAt, *task.CompletedAt)
}
