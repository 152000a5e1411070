package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefLifecycle(t *testing.T) {
	vm := New()
	ref := vm.NewReference(NewString("payload"), "mytag", "")
	handle := ref.String()
	assert.Contains(t, handle, "<reference.<mytag")

	got, err := vm.GetRef(handle)
	require.NoError(t, err)
	assert.Equal(t, "payload", got.String())

	require.NoError(t, vm.SetRef(handle, NewString("updated")))
	got, err = vm.GetRef(handle)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.String())
}

func TestCollectSweepsUnreachableRefs(t *testing.T) {
	vm := New()
	ref := vm.NewReference(NewString("gone"), "tag", "")
	handle := ref.String()
	// drop the only live handle text, nothing references it anymore
	ref.SetString("")

	vm.Collect()
	_, err := vm.GetRef(handle)
	assert.Error(t, err)
}

func TestCollectKeepsReferencedHandles(t *testing.T) {
	vm := New()
	ref := vm.NewReference(NewString("kept"), "tag", "")
	handle := ref.String()

	holder := vm.NewValue(NewString("holding " + handle))
	_ = holder

	vm.Collect()
	got, err := vm.GetRef(handle)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.String())
}

func TestCollectIfNeededPacing(t *testing.T) {
	now := time.Unix(0, 0)
	vm := New(WithClock(func() time.Time { return now }))
	for k := 0; k < 10; k++ {
		vm.NewReference(NewString("v"), "t", "")
	}
	// under both the id-count and time thresholds: no automatic collect yet
	assert.Equal(t, int64(10), vm.nextRefID)
	assert.Equal(t, int64(0), vm.lastCollectID)
}
